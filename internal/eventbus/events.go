package eventbus

// Типы событий жизненного цикла чанков
const (
	EventChunkCreated = "chunk.created"
	EventChunkReady   = "chunk.ready"
	EventChunkEvicted = "chunk.evicted"
)

// ChunkEvent: полезная нагрузка событий чанков
type ChunkEvent struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Visible   bool    `json:"visible"`
	Vertices  int     `json:"vertices,omitempty"`
	Triangles int     `json:"triangles,omitempty"`
	Distance  float64 `json:"distance,omitempty"`
}
