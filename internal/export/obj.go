// Package export сохраняет меши ландшафта в формате Wavefront OBJ.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/endless-terrain/internal/mesh"
)

// ZstdExt: расширение сжатых файлов
const ZstdExt = ".zst"

// OBJOptions управляет содержимым OBJ
type OBJOptions struct {
	Name    string // имя объекта (строка "o")
	Normals bool   // писать нормали вершин
}

// WriteOBJ пишет меш в w. Индексы в OBJ начинаются с 1.
func WriteOBJ(w io.Writer, m *mesh.Data, opts OBJOptions) error {
	if m == nil {
		return fmt.Errorf("пустой меш")
	}
	name := opts.Name
	if name == "" {
		name = "terrain"
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# endless-terrain: %d vertices, %d triangles\n", len(m.Vertices), m.TriangleCount())
	fmt.Fprintf(bw, "o %s\n", name)

	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v.X(), v.Y(), v.Z())
	}
	for _, uv := range m.UVs {
		fmt.Fprintf(bw, "vt %g %g\n", uv.X(), uv.Y())
	}
	if opts.Normals {
		for _, n := range m.Normals() {
			fmt.Fprintf(bw, "vn %g %g %g\n", n.X(), n.Y(), n.Z())
		}
	}

	for i := 0; i+2 < len(m.Triangles); i += 3 {
		a, b, c := m.Triangles[i]+1, m.Triangles[i+1]+1, m.Triangles[i+2]+1
		if opts.Normals {
			fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
		} else {
			fmt.Fprintf(bw, "f %d/%d %d/%d %d/%d\n", a, a, b, b, c, c)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("запись OBJ: %w", err)
	}
	return nil
}

// WriteOBJCompressed пишет OBJ, сжатый zstd
func WriteOBJCompressed(w io.Writer, m *mesh.Data, opts OBJOptions) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("zstd encoder: %w", err)
	}
	if err := WriteOBJ(enc, m, opts); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return nil
}

// WriteOBJFile сохраняет меш в файл; при compress к имени добавляется .zst
func WriteOBJFile(path string, m *mesh.Data, opts OBJOptions, compress bool) (string, error) {
	if compress && !strings.HasSuffix(path, ZstdExt) {
		path += ZstdExt
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("создание %s: %w", path, err)
	}

	if compress {
		err = WriteOBJCompressed(f, m, opts)
	} else {
		err = WriteOBJ(f, m, opts)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("закрытие %s: %w", path, cerr)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// OpenOBJ открывает OBJ-файл, распаковывая .zst прозрачно
func OpenOBJ(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ZstdExt) {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &zstdFile{dec: dec, f: f}, nil
}

type zstdFile struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdFile) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdFile) Close() error {
	z.dec.Close()
	return z.f.Close()
}

// Counts подсчитывает вершины и грани OBJ
func Counts(r io.Reader) (vertices, faces int, err error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "v "):
			vertices++
		case strings.HasPrefix(line, "f "):
			faces++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, 0, fmt.Errorf("чтение OBJ: %w", err)
	}
	return vertices, faces, nil
}
