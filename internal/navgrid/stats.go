package navgrid

// Stats накопленные счётчики сетки
type Stats struct {
	Searches                   uint64
	SearchesFound              uint64
	SearchesExhausted          uint64
	SearchesIterationLimit     uint64
	SearchesDestinationBlocked uint64
	SearchesOutOfBounds        uint64
	NodesExpanded              uint64

	RandomQueries uint64
	RandomMisses  uint64

	CheckpointQueries     uint64
	CheckpointDirect      uint64
	CheckpointOutOfRegion uint64
	CheckpointFallbacks   uint64

	Recalculations uint64
	EpochWraps     uint64
}

// Add прибавляет счётчики другой сетки
func (s *Stats) Add(o Stats) {
	s.Searches += o.Searches
	s.SearchesFound += o.SearchesFound
	s.SearchesExhausted += o.SearchesExhausted
	s.SearchesIterationLimit += o.SearchesIterationLimit
	s.SearchesDestinationBlocked += o.SearchesDestinationBlocked
	s.SearchesOutOfBounds += o.SearchesOutOfBounds
	s.NodesExpanded += o.NodesExpanded
	s.RandomQueries += o.RandomQueries
	s.RandomMisses += o.RandomMisses
	s.CheckpointQueries += o.CheckpointQueries
	s.CheckpointDirect += o.CheckpointDirect
	s.CheckpointOutOfRegion += o.CheckpointOutOfRegion
	s.CheckpointFallbacks += o.CheckpointFallbacks
	s.Recalculations += o.Recalculations
	s.EpochWraps += o.EpochWraps
}

// Stats возвращает копию счётчиков
func (g *Grid) Stats() Stats {
	return g.stats
}
