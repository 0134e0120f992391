// Package persist is the storage gateway for the small set of values that
// must survive a restart: setup stage, sheet link, resolved endpoint and
// slide position.
package persist

// Well-known keys.
const (
	KeyStage       = "app_stage"
	KeySheetLink   = "sheet_link"
	KeyCSVEndpoint = "csv_endpoint"
	KeySlideIndex  = "slide_index"
)

// Gateway reads and writes persisted values. Load returns "" and false when
// the key has never been written.
type Gateway interface {
	Load(key string) (string, bool)
	Save(key, value string) error
	Delete(key string) error
	Clear() error
}
