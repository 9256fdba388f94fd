package domain

import "github.com/shopspring/decimal"

// Commands exchanged between the coordinating and rendering contexts.
const (
	CommandSync          = "sync"
	CommandOptionsUpdate = "options:update"
	CommandResize        = "resize"
	CommandPointer       = "pointer"
	CommandReload        = "reload"
	CommandRedraw        = "redraw"
	CommandLoadChunk     = "provider:loadChunk"
	CommandLoadMeta      = "provider:loadMeta"
	CommandViewChanged   = "view:changed"
)

// LoadChunkRequest asks the provider registered under Key for one tile.
type LoadChunkRequest struct {
	Key   string    `json:"key"`
	Chunk ChunkDesc `json:"chunk"`
}

// LoadMetaRequest asks the provider registered under Key for its scale meta.
type LoadMetaRequest struct {
	Key        string          `json:"key"`
	Zoom       float64         `json:"zoom"`
	Resolution decimal.Decimal `json:"resolution"`
}

// ViewChanged reports the view a renderer settled on.
type ViewChanged struct {
	Time       Value           `json:"time"`
	Zoom       float64         `json:"zoom"`
	Resolution decimal.Decimal `json:"resolution"`
	Range      Range           `json:"range"`
}

// CacheOptions are the per-chart cache settings sent with options:update.
type CacheOptions struct {
	InstantValue     bool      `json:"instantValue,omitempty"`
	InstantZoomLevel *float64  `json:"instantZoomLevel,omitempty"`
	Immediate        bool      `json:"immediate,omitempty"`
	ChunkSize        *int      `json:"chunkSize,omitempty"`
	ZoomLevels       []float64 `json:"zoomLevels,omitempty"`
	Symmetric        bool      `json:"symmetric,omitempty"`
}

// RenderOptions is the options:update payload: one cache per chart key.
type RenderOptions struct {
	Charts map[string]CacheOptions `json:"charts"`
}

// Size is the resize payload in cells.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PointerKind names a pointer interaction.
type PointerKind string

const (
	PointerClick       PointerKind = "click"
	PointerDragStart   PointerKind = "drag:start"
	PointerDragUpdate  PointerKind = "drag:update"
	PointerDragEnd     PointerKind = "drag:end"
	PointerDragCancel  PointerKind = "drag:cancel"
	PointerPinchStart  PointerKind = "pinch:start"
	PointerPinchUpdate PointerKind = "pinch:update"
	PointerPinchEnd    PointerKind = "pinch:end"
	PointerWheel       PointerKind = "wheel"
)

// Pointer is the pointer payload. X and Delta are along the time axis; Y is
// the second finger of a pinch or the wheel delta.
type Pointer struct {
	Kind  PointerKind `json:"type"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Delta float64     `json:"delta"`
}
