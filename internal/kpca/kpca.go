// Package kpca implements the projection kernel used at every internal
// node: Random Fourier Features approximating an RBF kernel, followed by
// a truncated SVD that yields a single principal component. This mirrors
// the original ktreelib's PCA::RandomFourierFeatures + PCA::performPCA
// (Eigen-backed) using gonum/mat, the numerics library this retrieval
// pack's corpus reaches for (see SPEC_FULL.md §2).
package kpca

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mathrand "math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/ngina/ktreego/internal/ktreeerr"
)

// gamma is the fixed RBF kernel scale spec.md §4.3 specifies.
const gamma = 1.0

// Kernel draws Random Fourier Feature weights/bias and fits a rank-1 PCA
// on top of them. Each Kernel owns its own RNG, matching the source's
// "RNG seeded from a non-deterministic device at kernel construction" --
// reproducibility across nodes is not required (spec.md §5), but an
// explicit seed may be supplied for deterministic tests (spec.md §9 open
// question #4).
type Kernel struct {
	gamma float64
	rng   *mathrand.Rand
}

// NewKernel returns a Kernel. If seed is nil, the RNG is seeded from
// crypto/rand; otherwise it is seeded deterministically from *seed.
func NewKernel(seed *int64) *Kernel {
	var s1, s2 uint64
	if seed != nil {
		s1 = uint64(*seed)
		s2 = uint64(*seed) ^ 0x9E3779B97F4A7C15
	} else {
		s1 = randUint64()
		s2 = randUint64()
	}
	return &Kernel{
		gamma: gamma,
		rng:   mathrand.New(mathrand.NewPCG(s1, s2)),
	}
}

func randUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// platform; fall back to math/rand/v2's global generator rather
		// than panic.
		return uint64(mathrand.Int64())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Fit draws W (D'xF) and b (1xF), computes the Random Fourier Feature
// matrix Z (nxF) for x (nxD'), and runs a rank-1 truncated SVD over Z.
// It returns z, w, b, components (1xF, the first right-singular vector)
// and the n x1 projected_data = U[:, :1] * diag(sigma[:1]).
func (k *Kernel) Fit(x *mat.Dense, f int) (z, w, b, components, projected *mat.Dense, err error) {
	n, dPrime := x.Dims()
	if n == 0 || dPrime == 0 {
		return nil, nil, nil, nil, nil, errors.Wrap(ktreeerr.ErrIO, "kpca: empty input matrix")
	}

	w = mat.NewDense(dPrime, f, nil)
	for i := 0; i < dPrime; i++ {
		for j := 0; j < f; j++ {
			w.Set(i, j, k.rng.NormFloat64()*math.Sqrt(2*k.gamma))
		}
	}

	b = mat.NewDense(1, f, nil)
	for j := 0; j < f; j++ {
		b.Set(0, j, k.rng.Float64()*2*math.Pi)
	}

	z = cosineFeatureMap(x, w, b)

	var svd mat.SVD
	if ok := svd.Factorize(z, mat.SVDThin); !ok {
		return nil, nil, nil, nil, nil, errors.Wrap(ktreeerr.ErrIO, "kpca: SVD factorization failed")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	uRows, _ := u.Dims()
	uReduced := mat.NewDense(uRows, 1, nil)
	uReduced.Copy(u.Slice(0, uRows, 0, 1))

	vRows, _ := v.Dims()
	componentsCol := mat.NewDense(vRows, 1, nil)
	componentsCol.Copy(v.Slice(0, vRows, 0, 1))
	components = mat.NewDense(1, vRows, nil)
	components.Copy(componentsCol.T())

	projected = mat.NewDense(uRows, 1, nil)
	projected.Scale(values[0], uReduced)

	return z, w, b, components, projected, nil
}

// Project computes the scalar projection of one D'-dimensional row x onto
// the learned W, b, components: the cosine feature map of x, dotted with
// components. This is PCA::project.
func Project(x []float64, w, b, components *mat.Dense) (float64, error) {
	dPrime, f := w.Dims()
	if len(x) != dPrime {
		return 0, errors.Wrapf(ktreeerr.ErrIO, "kpca: projection dimension mismatch: got %d want %d", len(x), dPrime)
	}
	row := mat.NewDense(1, dPrime, nil)
	for i, v := range x {
		row.Set(0, i, v)
	}
	z := cosineFeatureMap(row, w, b)

	var out mat.Dense
	out.Mul(z, components.T())
	return out.At(0, 0), nil
}

// cosineFeatureMap computes sqrt(2/F) * cos(X*W + b) row-broadcast, the
// shared core of Fit's training-time transform and Project's query-time
// transform.
func cosineFeatureMap(x, w, b *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	_, f := w.Dims()

	var raw mat.Dense
	raw.Mul(x, w)

	scale := math.Sqrt(2.0 / float64(f))
	z := mat.NewDense(n, f, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < f; j++ {
			z.Set(i, j, scale*math.Cos(raw.At(i, j)+b.At(0, j)))
		}
	}
	return z
}
