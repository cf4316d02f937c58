package phaseprof

// Colors for the phases of a tiered-memory fetch pipeline.
const (
	ColorKernelLaunch Color = 0xFF00FF00 // GPU kernel launch
	ColorPrefetchOps  Color = 0xFFFFFF00 // host prefetch logic
	ColorIOSubmit     Color = 0xFF00FFFF // submitting IO commands
	ColorIOFlying     Color = 0xFFFF4500 // IO in flight on the device (async)

	// Demand fetch, the critical path.
	ColorFetchLookup   Color = 0xFFFF00FF // table lookup, shard lock
	ColorFetchWait     Color = 0xFFFF0000 // spinning on a pending prefetch
	ColorFetchCopy     Color = 0xFF32CD32 // host to device copy
	ColorFetchSlotLock Color = 0xFF8A2BE2 // slot lock
	ColorFetchRoutine        = ColorPrefetchOps

	ColorPrefetchProcess Color = 0xFF1E90FF
	ColorPrefetchLock    Color = 0xFFFFD700

	// Eviction.
	ColorEvictSearch Color = 0xFFFFA500 // finding a free slot
	ColorEvictUpdate Color = 0xFF00BFFF // updating the map
	ColorEvictCopy   Color = 0xFF98FB98 // device to host copy
)
