package pipeline

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names.
const (
	StageLoadProject StageName = "load_project"
	StageClean       StageName = "clean"
	StageSprites     StageName = "sprites"
	StageBundle      StageName = "bundle"
	StageCollect     StageName = "collect"
	StageHash        StageName = "hash"
	StageEmit        StageName = "emit"
	StageManifest    StageName = "manifest"
	StageTemplates   StageName = "templates"
	StageRefCheck    StageName = "refcheck"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// pipelineStages is the fixed order of a build pass.
func pipelineStages() []StageDef {
	return []StageDef{
		{StageLoadProject, stageLoadProject},
		{StageClean, stageClean},
		{StageSprites, stageSprites},
		{StageBundle, stageBundle},
		{StageCollect, stageCollect},
		{StageHash, stageHash},
		{StageEmit, stageEmit},
		{StageManifest, stageManifest},
		{StageTemplates, stageTemplates},
		{StageRefCheck, stageRefCheck},
	}
}
