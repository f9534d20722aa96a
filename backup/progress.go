package backup

// Stage identifies one phase of the backup pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageGather  Stage = "gather"
	StageExport  Stage = "export"
	StagePackage Stage = "package"
	StageProtect Stage = "protect"
	StageCommit  Stage = "commit"
)

// ProgressFunc observes pipeline progress. Every stage reports exactly once,
// in order, with fractions strictly increasing from 0.2 to 1.0. The Protect
// stage reports even when no protection was requested, so observers always
// see the same sequence.
type ProgressFunc func(stage Stage, fraction float64)
