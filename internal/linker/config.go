package linker

import "digestpipe/internal/domain"

// EntityRegion classifies where a configured entity is headquartered, used
// only for display grouping in the entity catalog — it plays no role in
// matching or story assembly.
type EntityRegion string

const (
	RegionCN   EntityRegion = "cn"
	RegionIntl EntityRegion = "intl"
)

// EntityConfig is one entry of entities.yaml: a named organization or
// project the linker recognizes by keyword, with a preferred link-type
// order. The ranker groups model-release stories by entity without
// reading PreferLinks.
type EntityConfig struct {
	ID          string
	Name        string
	Region      EntityRegion
	Keywords    []string
	PreferLinks []domain.LinkType
}
