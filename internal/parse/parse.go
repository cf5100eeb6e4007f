// Package parse orchestrates a full tape-to-tree parse over an already
// tokenized tape: check the root marker, partition, fan out partial
// builders across goroutines, join at a barrier, then sequentially merge
// and report the finished document.
package parse

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tapetree/tapetree/internal/arena"
	"github.com/tapetree/tapetree/internal/builder"
	"github.com/tapetree/tapetree/internal/doctree"
	"github.com/tapetree/tapetree/internal/errs"
	"github.com/tapetree/tapetree/internal/merge"
	"github.com/tapetree/tapetree/internal/partition"
	"github.com/tapetree/tapetree/internal/tape"
)

// Parse assembles a document tree from a tape and its string buffer using
// up to threadCount worker goroutines. It returns the tree and the ref of
// its (synthetic) document root, whose single child — if any — is the
// actual top-level JSON value.
func Parse(tapeSlots []uint64, strbuf []byte, threadCount int) (*doctree.Tree, doctree.Ref, error) {
	reader := tape.NewReader(tapeSlots, strbuf)

	rootTok, err := reader.Decode(0)
	if err != nil {
		return nil, doctree.Ref{}, err
	}

	if rootTok.Kind != tape.KindRoot {
		return nil, doctree.Ref{}, errs.MissingRoot()
	}

	ranges := partition.Partition(tapeSlots, threadCount)

	tree := doctree.New(len(tapeSlots))

	cursors := make([]*arena.WorkerCursor[doctree.Node], len(ranges))

	var offset int32
	for i, rg := range ranges {
		length := int32(rg.End - rg.Start)
		cursors[i] = tree.Arena.NewWorkerCursor(offset, length)
		offset += length
	}

	results := make([]builder.Result, len(ranges))

	g, _ := errgroup.WithContext(context.Background())

	for i, rg := range ranges {
		g.Go(func() error {
			res, buildErr := builder.Build(reader, rg.Start, rg.End, cursors[i], i)
			if buildErr != nil {
				return buildErr
			}

			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		tree.Arena.Clear()

		return nil, doctree.Ref{}, err
	}

	docRoot := tree.NewNode(doctree.KindRoot)
	frontier := docRoot

	for i, res := range results {
		tree.Arena.Publish(cursors[i])

		frontier, err = merge.Merge(tree, frontier, res)
		if err != nil {
			tree.Arena.Clear()

			return nil, doctree.Ref{}, err
		}
	}

	if !frontier.IsNil() {
		tree.Arena.Clear()

		return nil, doctree.Ref{}, errs.UnderClose()
	}

	return tree, docRoot, nil
}
