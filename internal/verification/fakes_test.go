package verification

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/kozaktomas/face-consistency/internal/imaging"
)

// solidImage creates a solid color RGBA image
func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Colors standing in for two different people. Red encodes identity.
var (
	personA = color.RGBA{100, 104, 100, 255}
	personB = color.RGBA{220, 216, 220, 255}
)

// withGreenCast adds a strong green bias to a color
func withGreenCast(c color.RGBA) color.RGBA {
	c.G = uint8(min(int(c.G)+80, 255))
	return c
}

// fakeFetcher serves images by reference and counts calls
type fakeFetcher struct {
	mu     sync.Mutex
	images map[string]image.Image
	errs   map[string]error
	calls  int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{images: map[string]image.Image{}, errs: map[string]error{}}
}

func (f *fakeFetcher) add(ref string, c color.RGBA) {
	f.images[ref] = solidImage(200, 200, c)
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[ref]; ok {
		return nil, err
	}
	img, ok := f.images[ref]
	if !ok {
		return nil, &FetchError{Reference: ref, Status: 404}
	}
	return img, nil
}

// fakeDetector returns the full image as the face, or a fixed box when set
type fakeDetector struct {
	box   *image.Rectangle
	err   error
	calls int
}

func (d *fakeDetector) DetectPrimaryFace(_ context.Context, img image.Image) (image.Rectangle, error) {
	d.calls++
	if d.err != nil {
		return image.Rectangle{}, d.err
	}
	if d.box != nil {
		return *d.box, nil
	}
	return img.Bounds(), nil
}

// colorEmbedder embeds a crop as its mean red channel scaled down
type colorEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *colorEmbedder) Embed(_ context.Context, crop *image.RGBA) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	means := imaging.ChannelMeans(crop)
	return []float32{float32(means[0] / 50)}, nil
}

// colorVerifier matches crops whose mean red channels are within 20 units
type colorVerifier struct {
	mu    sync.Mutex
	calls int
}

func (v *colorVerifier) VerifyPair(_ context.Context, a, b *image.RGBA, _ string, _ float64) (PairResult, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	ma, mb := imaging.ChannelMeans(a), imaging.ChannelMeans(b)
	diff := math.Abs(ma[0] - mb[0])
	return PairResult{Verified: diff <= 20, Distance: diff / 255}, nil
}

// indexVerifier knows which sample each crop belongs to and answers from a match table
type indexVerifier struct {
	index map[*image.RGBA]int
	match func(a, b int) bool
	errs  map[[2]int]error
	calls [][2]int
}

func (v *indexVerifier) VerifyPair(_ context.Context, a, b *image.RGBA, _ string, _ float64) (PairResult, error) {
	ia, ib := v.index[a], v.index[b]
	v.calls = append(v.calls, [2]int{ia, ib})
	if err, ok := v.errs[[2]int{ia, ib}]; ok {
		return PairResult{}, err
	}
	if v.match(ia, ib) {
		return PairResult{Verified: true, Distance: 0.1}, nil
	}
	return PairResult{Verified: false, Distance: 0.6}, nil
}

// fixedClusterer returns preset labels and records whether it was called
type fixedClusterer struct {
	labels []int
	called bool
	got    [][]float32
}

func (c *fixedClusterer) Cluster(embeddings [][]float32, _ float64, _ int) []int {
	c.called = true
	c.got = embeddings
	return c.labels
}

var errBoom = errors.New("boom")

// chainSamples builds n samples with distinct crops, marking the given indices missing
func chainSamples(n int, missing ...int) ([]FaceSample, map[*image.RGBA]int) {
	isMissing := newIndexSet(missing)
	samples := make([]FaceSample, n)
	index := make(map[*image.RGBA]int)
	for i := range n {
		samples[i] = FaceSample{Index: i}
		if isMissing.has(i) {
			samples[i].Err = ErrNoFaceDetected
			continue
		}
		crop := solidImage(2, 2, personA)
		samples[i].Crop = crop
		samples[i].Embedding = []float32{float32(i)}
		index[crop] = i
	}
	return samples, index
}

// testGroup builds a registration group with n records labeled "Day d-Shift s"
func testGroup(id string, n int) RegistrationGroup {
	g := RegistrationGroup{RegistrantID: id}
	for i := range n {
		day, shift := i/2+1, i%2+1
		g.Records = append(g.Records, ImageRecord{
			RegistrantID: id,
			Day:          "Day " + string(rune('0'+day)),
			Shift:        "Shift " + string(rune('0'+shift)),
			DayIndex:     day,
			ShiftIndex:   shift,
			Reference:    id + "/" + string(rune('a'+i)) + ".jpg",
		})
	}
	return g
}
