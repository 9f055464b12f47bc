package assets

import _ "embed"

// ModelCatalog is the embedded provider catalog: an ordered JSON array of
// provider groups, each listing its chat models and their default
// enablement. The model service seeds settings rows from it on startup.
//
//go:embed models.json
var ModelCatalog []byte
