package ftrl

//CoreSweep walks core indices through a list of strided legs, each leg a half open [from, to).
type CoreSweep struct {
	legs [][3]int
	leg  int
	at   int
}

//NewCoreSweep builds a sweep over a single leg.
func NewCoreSweep(from, to, stride int) *CoreSweep {
	return (&CoreSweep{}).Then(from, to, stride)
}

//Then appends a leg and returns the sweep.
func (s *CoreSweep) Then(from, to, stride int) *CoreSweep {
	if len(s.legs) == 0 {
		s.at = from
	}
	s.legs = append(s.legs, [3]int{from, to, stride})
	return s
}

func inLeg(leg [3]int, at int) bool {
	if leg[2] > 0 {
		return at < leg[1]
	}
	return at > leg[1]
}

//Next returns the following core and false once every leg is exhausted.
func (s *CoreSweep) Next() (int, bool) {
	for s.leg < len(s.legs) {
		cur := s.legs[s.leg]
		if inLeg(cur, s.at) {
			core := s.at
			s.at += cur[2]
			return core, true
		}
		s.leg++
		if s.leg < len(s.legs) {
			s.at = s.legs[s.leg][0]
		}
	}
	return 0, false
}

//Len counts the cores the sweep visits from its start.
func (s *CoreSweep) Len() int {
	total := 0
	for _, leg := range s.legs {
		span, stride := leg[1]-leg[0], leg[2]
		if stride < 0 {
			span, stride = -span, -stride
		}
		if span > 0 {
			total += (span + stride - 1) / stride
		}
	}
	return total
}

//alsSweepOrder visits the cores left to right and then back down to the second one.
func alsSweepOrder(dim int) *CoreSweep {
	return NewCoreSweep(0, dim, 1).Then(dim-2, 0, -1)
}
