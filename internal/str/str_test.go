package str_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/iiifsearch/canvasindexer/internal/str"
)

var _ = Describe("Str", func() {
	Describe("ShortTitle", func() {
		It("keeps short titles unchanged", func() {
			Expect(ShortTitle("short")).To(Equal("short"))
		})

		It("truncates long titles", func() {
			long := "http://example.org/iiif/a-very-long-canvas-identifier/canvas/p1"
			short := ShortTitle(long)
			Expect(len(short)).To(Equal(44))
			Expect(short).To(HaveSuffix("..."))
		})
	})

	Describe("SplitCanvasURI", func() {
		It("splits base and fragment", func() {
			base, fragment := SplitCanvasURI(
				"http://example.org/canvas/p1#xywh=10,20,30,40",
			)
			Expect(base).To(Equal("http://example.org/canvas/p1"))
			Expect(fragment).To(Equal("xywh=10,20,30,40"))
		})

		It("returns an empty fragment without '#'", func() {
			base, fragment := SplitCanvasURI("http://example.org/canvas/p1")
			Expect(base).To(Equal("http://example.org/canvas/p1"))
			Expect(fragment).To(Equal(""))
		})

		It("keeps later '#' characters in the fragment", func() {
			base, fragment := SplitCanvasURI("http://example.org/c#a#b")
			Expect(base).To(Equal("http://example.org/c"))
			Expect(fragment).To(Equal("a#b"))
		})
	})

	Describe("CanvasURI", func() {
		It("always contains the separator", func() {
			Expect(CanvasURI("http://example.org/c", "")).
				To(Equal("http://example.org/c#"))
			Expect(CanvasURI("http://example.org/c", "xywh=1,2,3,4")).
				To(Equal("http://example.org/c#xywh=1,2,3,4"))
		})
	})

	Describe("XYWHFragment", func() {
		It("extracts an xywh region", func() {
			Expect(XYWHFragment("http://example.org/c#xywh=1,2,3,4")).
				To(Equal("1,2,3,4"))
		})

		It("ignores other fragments", func() {
			Expect(XYWHFragment("http://example.org/c#t=20")).To(Equal(""))
			Expect(XYWHFragment("http://example.org/c")).To(Equal(""))
		})
	})
})
