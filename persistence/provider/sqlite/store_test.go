package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/enactiq/enact/fixtures"
	"github.com/enactiq/enact/internal/testing/storetest"
	"github.com/enactiq/enact/persistence"
	. "github.com/enactiq/enact/persistence/provider/sqlite"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Store", func() {
	var (
		dir   string
		store persistence.Store[*fixtures.StubInstance]
	)

	storetest.Declare(
		func(ctx context.Context) storetest.Out {
			var err error
			dir, err = os.MkdirTemp("", "enact-sqlite-*")
			if err != nil {
				panic(err)
			}

			p := &Provider[*fixtures.StubInstance]{
				Path:  filepath.Join(dir, "instances.sqlite3"),
				Codec: fixtures.StubCodec{},
			}

			store, err = p.Open(ctx, "<definition>")
			if err != nil {
				panic(err)
			}

			return storetest.Out{
				Store: store,
			}
		},
		func() {
			store.Close()
			os.RemoveAll(dir)
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
		dir, err = os.MkdirTemp("", "enact-sqlite-*")
		Expect(err).ShouldNot(HaveOccurred())

		p := &Provider[*fixtures.StubInstance]{
			Path:  filepath.Join(dir, "instances.sqlite3"),
			Codec: fixtures.StubCodec{},
		}

		s, err := p.Open(context.Background(), "<definition>")
		Expect(err).ShouldNot(HaveOccurred())

		store = s.(*Store[*fixtures.StubInstance])
	})

	AfterEach(func() {
		store.Close()
		os.RemoveAll(dir)
	})

	It("returns the metadata without deserializing the instance", func() {
		inst := fixtures.NewStubInstance("<instance>")

		err := store.Create(context.Background(), inst.ID, inst)
		Expect(err).ShouldNot(HaveOccurred())

		meta, ok, err := store.FindMeta(context.Background(), inst.ID)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(meta).To(Equal(inst.Meta()))
	})
})
