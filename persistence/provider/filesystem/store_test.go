package filesystem_test

import (
	"context"
	"os"

	"github.com/enactiq/enact/fixtures"
	"github.com/enactiq/enact/internal/testing/storetest"
	"github.com/enactiq/enact/persistence"
	. "github.com/enactiq/enact/persistence/provider/filesystem"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Store", func() {
	var dir string

	storetest.Declare(
		func(ctx context.Context) storetest.Out {
			var err error
			dir, err = os.MkdirTemp("", "enact-filesystem-*")
			if err != nil {
				panic(err)
			}

			p := &Provider[*fixtures.StubInstance]{
				Dir:   dir,
				Codec: fixtures.StubCodec{},
			}

			s, err := p.Open(ctx, "<definition>")
			if err != nil {
				panic(err)
			}

			return storetest.Out{
				Store: s,
			}
		},
		func() {
			if dir != "" {
				os.RemoveAll(dir)
			}
		},
	)
})

var _ = Describe("func Store.FindMeta()", func() {
	var (
		dir   string
		store *Store[*fixtures.StubInstance]
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "enact-filesystem-*")
		Expect(err).ShouldNot(HaveOccurred())

		p := &Provider[*fixtures.StubInstance]{
			Dir:   dir,
			Codec: fixtures.StubCodec{},
		}

		s, err := p.Open(context.Background(), "<definition>")
		Expect(err).ShouldNot(HaveOccurred())

		store = s.(*Store[*fixtures.StubInstance])
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("returns the metadata without unmarshaling the instance", func() {
		inst := fixtures.NewStubInstance("<instance>")
		inst.Description = "<description>"
		inst.Status = "Active"

		err := store.Create(context.Background(), inst.ID, inst)
		Expect(err).ShouldNot(HaveOccurred())

		meta, ok, err := store.FindMeta(context.Background(), inst.ID)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(meta).To(Equal(
			persistence.Metadata{
				Description: "<description>",
				Status:      "Active",
			},
		))
	})

	It("returns an absent result for an unknown ID", func() {
		_, ok, err := store.FindMeta(context.Background(), "<unknown>")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})
