package netLayer

// Sockopt 用于 dial 时配置一些底层参数. Only linux honours it.
type Sockopt struct {
	Somark int    `toml:"mark"`
	Device string `toml:"device"`
}

func (so *Sockopt) IsEmpty() bool {
	return so == nil || (so.Somark == 0 && so.Device == "")
}
