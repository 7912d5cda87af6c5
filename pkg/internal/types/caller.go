package types

// Caller 已认证的调用方，显式传入 service，不从 context 中隐式读取.
type Caller struct {
	UserID string
	Admin  bool
}

// Valid 调用方是否已识别.
func (c Caller) Valid() bool {
	return c.UserID != ""
}
