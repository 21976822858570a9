package bvsls

type Statistics struct {
	MoveCount       uint64
	RestartCount    uint64
	DownRepairCount uint64
	UpRepairCount   uint64
	EscalationCount uint64
}

func NewStatistics() *Statistics {
	return &Statistics{
		MoveCount:       0,
		RestartCount:    0,
		DownRepairCount: 0,
		UpRepairCount:   0,
		EscalationCount: 0,
	}
}

func (s *Statistics) Reset() {
	*s = Statistics{}
}
