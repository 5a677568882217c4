package ftrain

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

//ErrUnknownFamily is returned when a FamilySpec names a family that does not exist.
var ErrUnknownFamily = errors.New("unknown function family")

//Family is a parametric family of univariate functions.
type Family interface {
	NumParams() int
	Eval(params []float64, x float64) float64
	//ParamGrad writes df(x)/dparams into grad and returns f(x).
	ParamGrad(params []float64, x float64, grad []float64) float64
	//Inner is the L2 inner product of two members of the family.
	Inner(a, b []float64) float64
	//SqNormGrad returns the squared L2 norm of the function and, when grad is not nil,
	//adds scale times the derivative of the squared norm with respect to params.
	SqNormGrad(params []float64, scale float64, grad []float64) float64
	//Project stores in params the member of the family closest to f.
	Project(f func(float64) float64, params []float64)
	//Orthonormal reports whether the parameters are coefficients in an orthonormal basis.
	Orthonormal() bool
	Spec() FamilySpec
}

//LinearFamily is a family whose members are linear combinations of fixed basis functions.
type LinearFamily interface {
	Family
	Basis(x float64, dst []float64)
}

//FamilySpec is the serialisable description of a univariate family.
type FamilySpec struct {
	Kind      string  `json:"kind"`
	NumParams int     `json:"num_params"`
	Lb        float64 `json:"lb"`
	Ub        float64 `json:"ub"`
	Width     float64 `json:"width,omitempty"`
}

//Build creates the family described by the spec.
func (spec FamilySpec) Build() (Family, error) {
	switch spec.Kind {
	case "legendre":
		return NewLegendre(spec.NumParams, spec.Lb, spec.Ub), nil
	case "kernel":
		return NewKernel(spec.NumParams, spec.Lb, spec.Ub, spec.Width), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, spec.Kind)
}

//Legendre is the family of polynomials expanded in Legendre polynomials that are
//orthonormal with respect to the uniform probability measure on [Lb, Ub].
type Legendre struct {
	n      int
	lb, ub float64
}

//NewLegendre creates a polynomial family with numParams coefficients.
func NewLegendre(numParams int, lb, ub float64) *Legendre {
	if numParams <= 0 {
		log.Panicf("legendre family needs a positive number of parameters, got %d", numParams)
	}
	if !(ub > lb) {
		log.Panicf("legendre family needs lb < ub, got [%g, %g]", lb, ub)
	}
	return &Legendre{n: numParams, lb: lb, ub: ub}
}

func (l *Legendre) NumParams() int { return l.n }
func (l *Legendre) Orthonormal() bool { return true }

func (l *Legendre) Spec() FamilySpec {
	return FamilySpec{Kind: "legendre", NumParams: l.n, Lb: l.lb, Ub: l.ub}
}

func (l *Legendre) standard(x float64) float64 {
	return 2*(x-l.lb)/(l.ub-l.lb) - 1
}

//Basis writes the orthonormal Legendre polynomials evaluated at x into dst.
func (l *Legendre) Basis(x float64, dst []float64) {
	t := l.standard(x)
	p0, p1 := 1.0, t
	for i := 0; i < l.n; i++ {
		var pi float64
		switch i {
		case 0:
			pi = p0
		case 1:
			pi = p1
		default:
			k := float64(i - 1)
			pi = ((2*k+1)*t*p1 - k*p0) / (k + 1)
			p0, p1 = p1, pi
		}
		dst[i] = math.Sqrt(float64(2*i+1)) * pi
	}
}

func (l *Legendre) Eval(params []float64, x float64) float64 {
	t := l.standard(x)
	out := params[0]
	if l.n == 1 {
		return out
	}
	p0, p1 := 1.0, t
	out += math.Sqrt(3) * params[1] * p1
	for i := 2; i < l.n; i++ {
		k := float64(i - 1)
		p0, p1 = p1, ((2*k+1)*t*p1-k*p0)/(k+1)
		out += math.Sqrt(float64(2*i+1)) * params[i] * p1
	}
	return out
}

func (l *Legendre) ParamGrad(params []float64, x float64, grad []float64) float64 {
	l.Basis(x, grad[:l.n])
	return floats.Dot(params[:l.n], grad[:l.n])
}

func (l *Legendre) Inner(a, b []float64) float64 {
	return floats.Dot(a[:l.n], b[:l.n])
}

func (l *Legendre) SqNormGrad(params []float64, scale float64, grad []float64) float64 {
	if grad != nil {
		floats.AddScaled(grad[:l.n], 2*scale, params[:l.n])
	}
	return floats.Dot(params[:l.n], params[:l.n])
}

//Project computes the coefficients of f by Gauss-Legendre quadrature.
func (l *Legendre) Project(f func(float64) float64, params []float64) {
	half := (l.ub - l.lb) / 2
	basis := make([]float64, l.n)
	for i := 0; i < l.n; i++ {
		integrand := func(t float64) float64 {
			x := l.lb + (t+1)*half
			l.Basis(x, basis)
			return f(x) * basis[i]
		}
		params[i] = 0.5 * quad.Fixed(integrand, -1, 1, l.n+8, quad.Legendre{}, 0)
	}
}

//Kernel is the family of sums of Gaussian bumps with learnable weights and centers.
//Parameters are stored as all weights followed by all centers.
type Kernel struct {
	m         int
	lb, ub, s float64
}

//NewKernel creates a kernel family with numParams/2 bumps of the given width.
func NewKernel(numParams int, lb, ub, width float64) *Kernel {
	if numParams <= 0 || numParams%2 != 0 {
		log.Panicf("kernel family needs a positive even number of parameters, got %d", numParams)
	}
	if width <= 0 {
		log.Panicf("kernel family needs a positive width, got %g", width)
	}
	return &Kernel{m: numParams / 2, lb: lb, ub: ub, s: width}
}

func (k *Kernel) NumParams() int { return 2 * k.m }
func (k *Kernel) Orthonormal() bool { return false }

func (k *Kernel) Spec() FamilySpec {
	return FamilySpec{Kind: "kernel", NumParams: 2 * k.m, Lb: k.lb, Ub: k.ub, Width: k.s}
}

func (k *Kernel) bump(x, c float64) float64 {
	d := x - c
	return math.Exp(-d * d / (2 * k.s * k.s))
}

//cross is the integral over the real line of the product of two bumps.
func (k *Kernel) cross(c, d float64) float64 {
	diff := c - d
	return math.Sqrt(math.Pi) * k.s * math.Exp(-diff*diff/(4*k.s*k.s))
}

func (k *Kernel) Eval(params []float64, x float64) float64 {
	out := 0.0
	for i := 0; i < k.m; i++ {
		out += params[i] * k.bump(x, params[k.m+i])
	}
	return out
}

func (k *Kernel) ParamGrad(params []float64, x float64, grad []float64) float64 {
	out := 0.0
	for i := 0; i < k.m; i++ {
		c := params[k.m+i]
		e := k.bump(x, c)
		grad[i] = e
		grad[k.m+i] = params[i] * e * (x - c) / (k.s * k.s)
		out += params[i] * e
	}
	return out
}

func (k *Kernel) Inner(a, b []float64) float64 {
	out := 0.0
	for i := 0; i < k.m; i++ {
		for j := 0; j < k.m; j++ {
			out += a[i] * b[j] * k.cross(a[k.m+i], b[k.m+j])
		}
	}
	return out
}

func (k *Kernel) SqNormGrad(params []float64, scale float64, grad []float64) float64 {
	out := 0.0
	for i := 0; i < k.m; i++ {
		ci := params[k.m+i]
		for j := 0; j < k.m; j++ {
			cj := params[k.m+j]
			kij := k.cross(ci, cj)
			out += params[i] * params[j] * kij
			if grad != nil {
				grad[i] += scale * 2 * params[j] * kij
				grad[k.m+i] -= scale * params[i] * params[j] * kij * (ci - cj) / (k.s * k.s)
			}
		}
	}
	return out
}

//Project places the centers uniformly on [lb, ub] and fits the weights by least squares.
func (k *Kernel) Project(f func(float64) float64, params []float64) {
	for i := 0; i < k.m; i++ {
		if k.m == 1 {
			params[k.m] = (k.lb + k.ub) / 2
			break
		}
		params[k.m+i] = k.lb + float64(i)*(k.ub-k.lb)/float64(k.m-1)
	}

	npts := 4*k.m + 4
	a := mat.NewDense(npts, k.m, nil)
	b := mat.NewVecDense(npts, nil)
	for p := 0; p < npts; p++ {
		x := k.lb + float64(p)*(k.ub-k.lb)/float64(npts-1)
		b.SetVec(p, f(x))
		for i := 0; i < k.m; i++ {
			a.Set(p, i, k.bump(x, params[k.m+i]))
		}
	}

	var w mat.VecDense
	if err := w.SolveVec(a, b); err != nil {
		log.Printf("warning: kernel projection is ill conditioned: %v", err)
	}
	for i := 0; i < k.m; i++ {
		params[i] = w.AtVec(i)
	}
}
