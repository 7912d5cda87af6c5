package types

// SweepResponse 过期清理结果.
type SweepResponse struct {
	Purged  int `json:"purged"`
	Batches int `json:"batches"`
}
