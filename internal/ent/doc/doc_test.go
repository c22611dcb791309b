package doc_test

import (
	"context"
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/iiifsearch/canvasindexer/internal/ent/doc"
	"github.com/iiifsearch/canvasindexer/internal/ent/iiif"
)

// stubFetcher serves canned JSON documents by URL.
type stubFetcher struct {
	docs map[string]string
}

func (s *stubFetcher) GetJSON(_ context.Context, url string, dst any) error {
	blob, ok := s.docs[url]
	if !ok {
		return fmt.Errorf("no document at %s", url)
	}
	return json.Unmarshal([]byte(blob), dst)
}

func (s *stubFetcher) PostJSON(
	_ context.Context, url string, _, _ any,
) error {
	return fmt.Errorf("no document at %s", url)
}

func testManifest() iiif.Manifest {
	blob := `{
		"@id": "http://example.org/manifest.json",
		"label": "Test Manifest",
		"sequences": [{
			"canvases": [
				{
					"@id": "http://example.org/canvas/page1",
					"label": "page1",
					"images": [{"resource": {
						"@id": "http://example.org/iiif/p1/full/full/0/default.jpg",
						"service": {"@id": "http://example.org/iiif/p1"}
					}}]
				},
				{
					"@id": "http://example.org/canvas/page10",
					"label": "page10",
					"cursorIndex": 9,
					"images": [{"resource": {
						"@id": "http://example.org/iiif/p10/full/full/0/default.jpg"
					}}]
				}
			]
		}]
	}`
	var man iiif.Manifest
	err := json.Unmarshal([]byte(blob), &man)
	Expect(err).NotTo(HaveOccurred())
	return man
}

var _ = Describe("Doc", func() {
	var f *stubFetcher
	var man iiif.Manifest
	ctx := context.Background()

	BeforeEach(func() {
		man = testManifest()
		f = &stubFetcher{docs: map[string]string{
			"http://example.org/iiif/p1/info.json": `{
				"@id": "http://example.org/iiif/p1",
				"profile": "http://iiif.io/api/image/2/level1.json",
				"qualities": ["native"],
				"formats": ["png"]
			}`,
		}}
	})

	Describe("BuildCanvasDoc", func() {
		It("matches the exact canvas base ID", func() {
			curCan := iiif.CurationCanvas{
				ID: "http://example.org/canvas/page1#xywh=1,2,3,4",
			}
			d, ok := BuildCanvasDoc(ctx, f, man, curCan, 200, 200)
			Expect(ok).To(BeTrue())
			Expect(d.CanvasID).To(Equal("http://example.org/canvas/page1"))
			Expect(d.CanvasIndex).To(Equal(1))
			Expect(d.Fragment).To(Equal("xywh=1,2,3,4"))
			Expect(d.ManifestURL).To(Equal("http://example.org/manifest.json"))
			Expect(d.Canvas).To(
				Equal("http://example.org/iiif/p1/info.json"),
			)
			Expect(d.URI()).To(
				Equal("http://example.org/canvas/page1#xywh=1,2,3,4"),
			)
		})

		It("does not cross-match prefixed canvas IDs", func() {
			// page1 is a prefix of page10; substring matching would pick
			// the wrong canvas
			curCan := iiif.CurationCanvas{
				ID: "http://example.org/canvas/page10",
			}
			d, ok := BuildCanvasDoc(ctx, f, man, curCan, 200, 200)
			Expect(ok).To(BeTrue())
			Expect(d.CanvasID).To(Equal("http://example.org/canvas/page10"))
			Expect(d.CanvasIndex).To(Equal(2))
			Expect(d.CanvasCursorIndex).To(BeEquivalentTo(9))
			Expect(d.Fragment).To(Equal(""))
		})

		It("derives the image base from the resource URL without a service",
			func() {
				curCan := iiif.CurationCanvas{
					ID: "http://example.org/canvas/page10",
				}
				d, _ := BuildCanvasDoc(ctx, f, man, curCan, 200, 200)
				Expect(d.Canvas).To(
					Equal("http://example.org/iiif/p10/info.json"),
				)
			})

		It("builds the thumbnail from the advertised info.json", func() {
			curCan := iiif.CurationCanvas{
				ID: "http://example.org/canvas/page1#xywh=1,2,3,4",
			}
			d, _ := BuildCanvasDoc(ctx, f, man, curCan, 200, 200)
			// level 1, native quality, png format
			Expect(d.CanvasThumbnail).To(Equal(
				"http://example.org/iiif/p1/1,2,3,4/200,/0/native.png",
			))
		})

		It("degrades to defaults when info.json is unreachable", func() {
			curCan := iiif.CurationCanvas{
				ID: "http://example.org/canvas/page10",
			}
			d, ok := BuildCanvasDoc(ctx, f, man, curCan, 200, 200)
			Expect(ok).To(BeTrue())
			// empty info: unknown @id, default quality, jpg format
			Expect(d.CanvasThumbnail).To(Equal("/full/!200,200/0/default.jpg"))
		})

		It("carries curation canvas metadata", func() {
			curCan := iiif.CurationCanvas{
				ID: "http://example.org/canvas/page1",
				Metadata: []any{
					map[string]any{"label": "tag", "value": "cat"},
				},
			}
			d, _ := BuildCanvasDoc(ctx, f, man, curCan, 200, 200)
			Expect(d.Metadata).To(HaveLen(1))
		})

		It("reports an unknown canvas", func() {
			curCan := iiif.CurationCanvas{
				ID: "http://example.org/canvas/page404",
			}
			_, ok := BuildCanvasDoc(ctx, f, man, curCan, 200, 200)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("BuildCurationDoc", func() {
		cur := iiif.Curation{
			ID:    "http://example.org/curation/1",
			Label: "Test Curation",
			Selections: []iiif.Range{
				{
					Members: []iiif.CurationCanvas{{ID: "a#"}, {ID: "b#"}},
				},
				{
					Canvases: []iiif.CurationCanvas{{ID: "c#"}},
				},
			},
		}

		It("builds a canvas metadata hit", func() {
			canDoc := CanvasDoc{
				CanvasID:        "http://example.org/canvas/page1",
				Fragment:        "xywh=1,2,3,4",
				CanvasThumbnail: "http://example.org/thumb.jpg",
			}
			d := BuildCurationDoc(cur, "Create", "", &canDoc, 2)
			Expect(d.CurationURL).To(Equal("http://example.org/curation/1"))
			Expect(d.TotalImages).To(Equal(3))
			Expect(d.CurationHit).To(BeNil())
			Expect(d.CanvasHit).NotTo(BeNil())
			Expect(d.CanvasHit.CurationCanvasIndex).To(Equal(3))
			Expect(*d.CurationThumbnail).To(
				Equal("http://example.org/thumb.jpg"),
			)
			Expect(d.CrawledAt).NotTo(BeEmpty())
		})

		It("builds a top level metadata hit", func() {
			d := BuildCurationDoc(cur, "Create", "", nil, 0)
			Expect(d.CanvasHit).To(BeNil())
			Expect(d.CurationHit).NotTo(BeNil())
			Expect(*d.CurationHit).To(BeTrue())
			Expect(d.CurationThumbnail).To(BeNil())
		})

		It("keeps the activity end time for updates", func() {
			d := BuildCurationDoc(cur, "Update", "2018-03-10T12:00:00", nil, 0)
			Expect(d.CrawledAt).To(Equal("2018-03-10T12:00:00"))
		})

		It("serializes unset hits as null", func() {
			d := BuildCurationDoc(cur, "Create", "", nil, 0)
			blob, err := json.Marshal(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(blob)).To(ContainSubstring(`"canvasHit":null`))
			Expect(string(blob)).To(ContainSubstring(`"curationHit":true`))
		})
	})

	Describe("EnhanceTopMetaCurationDoc", func() {
		It("adds the thumbnail retroactively", func() {
			d := BuildCurationDoc(iiif.Curation{}, "Create", "", nil, 0)
			Expect(d.CurationThumbnail).To(BeNil())
			EnhanceTopMetaCurationDoc(&d, CanvasDoc{
				CanvasThumbnail: "http://example.org/thumb.jpg",
			})
			Expect(*d.CurationThumbnail).To(
				Equal("http://example.org/thumb.jpg"),
			)
		})
	})
})
