package aggregate

// Confidence dimensions are independent estimates multiplied together, so a
// single weak dimension suppresses the composite. The fixed dampening factor
// accounts for compounding uncertainty across estimates that are only
// approximately independent.
const dampening = 0.9

// macroLocationConfidence applies to inferred evidence: macro rows name
// their metro directly instead of going through location normalization.
const macroLocationConfidence = 0.95

type confidenceInputs struct {
	source   float64 // weighted reliability of the contributing sources
	salary   float64 // how much of the evidence carries salary data
	location float64 // how confidently rows were assigned to the metro
	sample   float64 // coverage credit for evidence volume
}

func composite(in confidenceInputs) float64 {
	c := in.source * in.salary * in.location * in.sample * dampening
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// salaryConfidence maps salary coverage share into [0.3, 1.0]: missing
// salary data weakens an aggregate but does not zero it out.
func salaryConfidence(withSalary, total int) float64 {
	if total == 0 {
		return 0
	}
	return 0.3 + 0.7*float64(withSalary)/float64(total)
}

// sampleConfidence grows with evidence count and saturates: 1 row earns
// 0.25, 3 rows 0.5, 12 rows 0.8.
func sampleConfidence(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) / float64(n+3)
}
