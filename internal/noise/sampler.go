package noise

import (
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Algorithm выбирает источник когерентного шума
type Algorithm int

const (
	AlgorithmPerlin Algorithm = iota
	AlgorithmSimplex
)

// String возвращает имя алгоритма для конфигурации и логов
func (a Algorithm) String() string {
	switch a {
	case AlgorithmSimplex:
		return "simplex"
	default:
		return "perlin"
	}
}

// ParseAlgorithm разбирает имя алгоритма из конфигурации
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "perlin":
		return AlgorithmPerlin, nil
	case "simplex", "opensimplex":
		return AlgorithmSimplex, nil
	default:
		return AlgorithmPerlin, fmt.Errorf("неизвестный алгоритм шума %q", s)
	}
}

// Sampler возвращает значение когерентного шума в диапазоне [-1, 1].
// Реализации только читают своё состояние и безопасны для параллельного вызова.
type Sampler interface {
	Sample2D(x, y float64) float64
}

// perlinDomainShift уводит координаты в положительную область:
// go-perlin отбрасывает дробную часть через int(), и при отрицательных
// координатах интерполяция ломается на границах решётки.
const perlinDomainShift = 1 << 22

type perlinSampler struct {
	p *perlin.Perlin
}

func (s perlinSampler) Sample2D(x, y float64) float64 {
	return s.p.Noise2D(x+perlinDomainShift, y+perlinDomainShift)
}

type simplexSampler struct {
	n opensimplex.Noise
}

func (s simplexSampler) Sample2D(x, y float64) float64 {
	return s.n.Eval2(x, y)
}

// NewSampler создаёт генератор шума для сида.
// Для Перлина используется одна октава: октавы складываются в Generate.
func NewSampler(alg Algorithm, seed int64) Sampler {
	switch alg {
	case AlgorithmSimplex:
		return simplexSampler{n: opensimplex.New(seed)}
	default:
		alpha := 2.0 // сглаживание
		beta := 2.0  // частота
		return perlinSampler{p: perlin.NewPerlin(alpha, beta, 1, seed)}
	}
}
