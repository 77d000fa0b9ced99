package api

// ArtifactClass is the kind of a tracked file. It decides the glob pattern
// the file is enumerated with and the action a change to it triggers.
type ArtifactClass string

const (
	ClassEntity        ArtifactClass = "entity"
	ClassTypes         ArtifactClass = "types"
	ClassEnums         ArtifactClass = "enums"
	ClassGenerated     ArtifactClass = "generated"
	ClassCompiledModel ArtifactClass = "model"
)

// ArtifactClasses lists every class in enumeration order.
var ArtifactClasses = []ArtifactClass{
	ClassEntity,
	ClassTypes,
	ClassEnums,
	ClassGenerated,
	ClassCompiledModel,
}

// ChecksumRecord is the content hash of one artifact.
// Path is slash-separated and relative to the API root.
type ChecksumRecord struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// TargetPlaceholder is substituted with each configured build target.
const TargetPlaceholder = ":target"

// PathAndCode is a rendered, resolved artifact ready to be written.
type PathAndCode struct {
	Path string `json:"path"`
	Code string `json:"code"`
}

// TemplateKey names a template handler.
type TemplateKey string

const (
	TemplateEntity            TemplateKey = "entity"
	TemplateInitGenerated     TemplateKey = "init_generated"
	TemplateInitTypes         TemplateKey = "init_types"
	TemplateGenerated         TemplateKey = "generated"
	TemplateGeneratedHTTP     TemplateKey = "generated_http"
	TemplateGeneratedGo       TemplateKey = "generated_go"
	TemplateModel             TemplateKey = "model"
	TemplateModelTest         TemplateKey = "model_test"
	TemplateService           TemplateKey = "service"
	TemplateViewList          TemplateKey = "view_list"
	TemplateViewListColumns   TemplateKey = "view_list_columns"
	TemplateViewSearchInput   TemplateKey = "view_search_input"
	TemplateViewForm          TemplateKey = "view_form"
	TemplateViewIDAllSelect   TemplateKey = "view_id_all_select"
	TemplateViewIDAsyncSelect TemplateKey = "view_id_async_select"
	TemplateViewEnumsSelect   TemplateKey = "view_enums_select"
	TemplateViewEnumsDropdown TemplateKey = "view_enums_dropdown"
	TemplateViewEnumsButtons  TemplateKey = "view_enums_buttonset"
)

// TemplateKeys lists every template key in a stable order.
var TemplateKeys = []TemplateKey{
	TemplateEntity,
	TemplateInitGenerated,
	TemplateInitTypes,
	TemplateGenerated,
	TemplateGeneratedHTTP,
	TemplateGeneratedGo,
	TemplateModel,
	TemplateModelTest,
	TemplateService,
	TemplateViewList,
	TemplateViewListColumns,
	TemplateViewSearchInput,
	TemplateViewForm,
	TemplateViewIDAllSelect,
	TemplateViewIDAsyncSelect,
	TemplateViewEnumsSelect,
	TemplateViewEnumsDropdown,
	TemplateViewEnumsButtons,
}

// TemplateOptions carries the inputs of a template render.
type TemplateOptions struct {
	EntityID string `json:"entityId"`
	// EnumID selects the enum for view_enums_* templates.
	EnumID string `json:"enumId,omitempty"`
	// Title, Table and ParentID seed a new entity definition.
	Title    string `json:"title,omitempty"`
	Table    string `json:"table,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

// GenerateOptions controls the overwrite policy of a generate call.
type GenerateOptions struct {
	Overwrite bool
}
