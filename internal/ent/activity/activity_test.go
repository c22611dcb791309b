package activity_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/iiifsearch/canvasindexer/internal/ent/activity"
)

var _ = Describe("Activity", func() {
	Describe("ParseTime", func() {
		It("parses timestamps with a zone designator", func() {
			ts, err := ParseTime("2018-03-10T16:37:19.669221+00:00")
			Expect(err).NotTo(HaveOccurred())
			Expect(ts.Year()).To(Equal(2018))
		})

		It("parses naive timestamps with fractional seconds", func() {
			ts, err := ParseTime("2018-03-10T16:37:19.669221")
			Expect(err).NotTo(HaveOccurred())
			Expect(ts.Second()).To(Equal(19))
		})

		It("parses naive timestamps without fractional seconds", func() {
			_, err := ParseTime("2018-03-10T16:37:19")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects garbage", func() {
			_, err := ParseTime("not a time")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Object", func() {
		It("reads the type and '@id' reference", func() {
			var obj Object
			err := json.Unmarshal(
				[]byte(`{"@type": "cr:Curation",
				         "@id": "http://example.org/cur/1"}`),
				&obj,
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(obj.Type).To(Equal("cr:Curation"))
			Expect(obj.URI).To(Equal("http://example.org/cur/1"))
		})

		It("prefers 'id' over '@id'", func() {
			var obj Object
			err := json.Unmarshal(
				[]byte(`{"@type": "cr:Curation",
				         "id": "http://example.org/cur/1",
				         "@id": "http://example.org/cur/other"}`),
				&obj,
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(obj.URI).To(Equal("http://example.org/cur/1"))
		})
	})

	Describe("ShouldProcess", func() {
		var lastCrawl time.Time
		var seen map[string]bool

		BeforeEach(func() {
			lastCrawl = time.Date(2018, 3, 10, 12, 0, 0, 0, time.UTC)
			seen = make(map[string]bool)
		})

		newAct := func(endTime string) Activity {
			return Activity{
				ID:      "http://example.org/as/1",
				Type:    TypeCreate,
				EndTime: endTime,
				Object: Object{
					Type: CurationType,
					URI:  "http://example.org/cur/1",
				},
			}
		}

		It("accepts activities newer than the last crawl", func() {
			act := newAct("2018-03-10T13:00:00")
			Expect(ShouldProcess(act, lastCrawl, seen)).To(BeTrue())
		})

		It("rejects activities at exactly the last crawl time", func() {
			act := newAct("2018-03-10T12:00:00")
			Expect(ShouldProcess(act, lastCrawl, seen)).To(BeFalse())
		})

		It("rejects older activities", func() {
			act := newAct("2018-03-10T11:00:00")
			Expect(ShouldProcess(act, lastCrawl, seen)).To(BeFalse())
		})

		It("accepts everything after a zero last crawl", func() {
			act := newAct("2018-03-10T11:00:00")
			Expect(ShouldProcess(act, time.Time{}, seen)).To(BeTrue())
		})

		It("rejects objects already processed in this run", func() {
			act := newAct("2018-03-10T13:00:00")
			seen[act.Object.URI] = true
			Expect(ShouldProcess(act, lastCrawl, seen)).To(BeFalse())
		})

		It("rejects objects that are not curations", func() {
			act := newAct("2018-03-10T13:00:00")
			act.Object.Type = "sc:Manifest"
			Expect(ShouldProcess(act, lastCrawl, seen)).To(BeFalse())
		})

		It("rejects activities with unparsable end times", func() {
			act := newAct("whenever")
			Expect(ShouldProcess(act, lastCrawl, seen)).To(BeFalse())
		})
	})
})
