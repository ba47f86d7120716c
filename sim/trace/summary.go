package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents        int
	Arrivals           int
	Admitted           int
	Dropped            int
	Departures         int // departures that removed a customer
	EmptyDepartures    int // departures that removed no one
	PeakOccupancy      int
	DeparturesByServer map[int]int // server index → completed services
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		DeparturesByServer: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	for _, e := range st.Events {
		switch e.Kind {
		case KindArrival:
			summary.Arrivals++
			if e.Dropped {
				summary.Dropped++
			} else {
				summary.Admitted++
			}
		case KindDeparture:
			if e.Empty {
				summary.EmptyDepartures++
				break
			}
			summary.Departures++
			summary.DeparturesByServer[e.Server]++
		}
		if e.OccupancyAfter > summary.PeakOccupancy {
			summary.PeakOccupancy = e.OccupancyAfter
		}
	}

	return summary
}
