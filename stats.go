package lfmemo

type OpenAddressStats struct {
	Size       int
	Capacity   int
	LoadFactor float32
	// Entries living outside their home slot because of probing.
	Displaced int
	// Lost CAS attempts, key claims and value writes together.
	Retries uint64
}

type ChainStats struct {
	Size           int
	Buckets        int
	UsedBuckets    int
	MaxChainLength int
	AvgChainLength float32
	CellsAllocated int
	CellsCapacity  int
	// Speculative cells that lost the head CAS to the same key.
	Wasted  int
	Retries uint64
}

type SerialStats struct {
	Size              int
	Capacity          int
	EffectiveCapacity int
}

type EngineStats struct {
	Size     int
	Capacity int
	Inserts  uint64
	Hits     uint64
	Misses   uint64
}
