package estimator

import "gonum.org/v1/gonum/mat"

// PriorWeight is the regularisation weight of every team's prior. It is the
// same for all teams and strictly positive, so the normal equations are
// always positive definite.
const PriorWeight = 0.1

// solveMMSE solves (AᵀA + λI) x = Aᵀy + λ·prior where each row of A marks
// one observation's members. With no rows the answer is the prior.
func solveMMSE(prior []float64, rows []observation, y func(observation) float64) []float64 {
	n := len(prior)
	out := make([]float64, n)
	if len(rows) == 0 || n == 0 {
		copy(out, prior)
		return out
	}

	ata := mat.NewSymDense(n, nil)
	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		ata.SetSym(i, i, PriorWeight)
		rhs[i] = PriorWeight * prior[i]
	}
	for _, r := range rows {
		v := y(r)
		for p, i := range r.members {
			rhs[i] += v
			for _, j := range r.members[p:] {
				ata.SetSym(i, j, ata.At(i, j)+1)
			}
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(ata) {
		copy(out, prior)
		return out
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(n, rhs)); err != nil {
		copy(out, prior)
		return out
	}
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out
}
