package numeric

// Diff1 estimates f'(x) of a complex-valued function by the symmetric
// three-point stencil with step h.
func Diff1(f func(float64) complex128, x, h float64) complex128 {
	return (f(x+h) - f(x-h)) / complex(2*h, 0)
}

// Diff2 estimates f''(x) by the symmetric three-point stencil with step h.
func Diff2(f func(float64) complex128, x, h float64) complex128 {
	return (f(x+h) - 2*f(x) + f(x-h)) / complex(h*h, 0)
}
