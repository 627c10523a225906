package terrain

import "github.com/annel0/endless-terrain/internal/noise"

// MapData: результат генерации карты: высоты и цвета одного размера
type MapData struct {
	HeightMap *noise.HeightMap
	ColorMap  ColorMap
}

// Width возвращает ширину карты
func (m MapData) Width() int { return m.HeightMap.Width }

// Height возвращает высоту карты
func (m MapData) Height() int { return m.HeightMap.Height }

// GenerateMapData строит шум и раскрашивает его регионами
func GenerateMapData(width, height int, params noise.Params, regions []Region) MapData {
	hm := noise.Generate(width, height, params)
	return MapData{
		HeightMap: hm,
		ColorMap:  Classify(hm, regions),
	}
}
