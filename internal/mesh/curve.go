package mesh

import "sort"

// Curve переводит нормализованную высоту в множитель высоты вершины
type Curve interface {
	Evaluate(t float64) float64
}

// CurveFunc позволяет использовать обычную функцию как Curve
type CurveFunc func(float64) float64

func (f CurveFunc) Evaluate(t float64) float64 { return f(t) }

// Linear: тождественная кривая
var Linear Curve = CurveFunc(func(t float64) float64 { return t })

// Keyframe: опорная точка кривой
type Keyframe struct {
	Time  float64 `yaml:"time" json:"time"`
	Value float64 `yaml:"value" json:"value"`
}

// Keyframes: кусочно-линейная кривая по опорным точкам.
// Значение не меняется после создания, поэтому кривую можно читать из нескольких горутин.
type Keyframes struct {
	keys []Keyframe
}

// NewKeyframes копирует и сортирует опорные точки по времени
func NewKeyframes(keys ...Keyframe) *Keyframes {
	sorted := make([]Keyframe, len(keys))
	copy(sorted, keys)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &Keyframes{keys: sorted}
}

// Keys возвращает копию опорных точек
func (k *Keyframes) Keys() []Keyframe {
	out := make([]Keyframe, len(k.keys))
	copy(out, k.keys)
	return out
}

// Evaluate интерполирует значение; за пределами точек значение зажимается крайними
func (k *Keyframes) Evaluate(t float64) float64 {
	switch len(k.keys) {
	case 0:
		return t
	case 1:
		return k.keys[0].Value
	}

	if t <= k.keys[0].Time {
		return k.keys[0].Value
	}
	last := k.keys[len(k.keys)-1]
	if t >= last.Time {
		return last.Value
	}

	i := sort.Search(len(k.keys), func(i int) bool { return k.keys[i].Time >= t })
	a, b := k.keys[i-1], k.keys[i]
	if b.Time == a.Time {
		return b.Value
	}
	f := (t - a.Time) / (b.Time - a.Time)
	return a.Value + (b.Value-a.Value)*f
}
