package enum

type EntityType string

const (
	CACHE EntityType = "CACHE"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
