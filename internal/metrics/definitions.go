// internal/metrics/definitions.go
// Package: metrics
package metrics

// Unit is the measurement unit of a metric.
type Unit string

const (
	UnitMillis Unit = "ms"
	UnitFPS    Unit = "fps"
)

// Metric keys, in report order.
const (
	LoadScreenBoot    = "loadScreenBoot"
	LoadingScreen     = "loadingScreen"
	LoadingFirstFrame = "loadingFirstFrame"
	ChunkLoadingTime  = "chunkLoadingTime"
	RenderCaching5    = "renderCaching5"
	AvgChunkLoad      = "avgChunkLoad"
	FirstFrameDelta   = "firstFrameDelta"
	FirstFps          = "firstFps"
)

// Timestamp markers captured into RunResult.Points.
const (
	MarkerGameHTMLStart = "gameHtmlStart"
	MarkerGameLoadStart = "gameLoadStart"
	MarkerGameReadyAt   = "gameReadyAt"
	MarkerFirstFrameAt  = "firstFrameAt"
)

// Definition describes one derived metric.
type Definition struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Unit  Unit   `json:"unit"`
}

var definitions = [...]Definition{
	{Key: LoadScreenBoot, Label: "Load screen boot", Unit: UnitMillis},
	{Key: LoadingScreen, Label: "Loading screen", Unit: UnitMillis},
	{Key: LoadingFirstFrame, Label: "Loading → first frame", Unit: UnitMillis},
	{Key: ChunkLoadingTime, Label: "Chunk cache build", Unit: UnitMillis},
	{Key: RenderCaching5, Label: "Render cache (5 chunks)", Unit: UnitMillis},
	{Key: AvgChunkLoad, Label: "Avg chunk load", Unit: UnitMillis},
	{Key: FirstFrameDelta, Label: "First frame delta", Unit: UnitMillis},
	{Key: FirstFps, Label: "First frame FPS", Unit: UnitFPS},
}

var markerKeys = []string{
	MarkerGameHTMLStart,
	MarkerGameLoadStart,
	MarkerGameReadyAt,
	MarkerFirstFrameAt,
}

// Definitions returns the metric registry in report order. The returned
// slice is a copy.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions[:])
	return out
}

// Keys returns the metric keys in report order.
func Keys() []string {
	out := make([]string, len(definitions))
	for i, d := range definitions {
		out[i] = d.Key
	}
	return out
}

// MarkerKeys returns the timestamp marker names in capture order.
func MarkerKeys() []string {
	return append([]string(nil), markerKeys...)
}

// Lookup returns the definition registered under key.
func Lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}
