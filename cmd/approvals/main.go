// Package main runs a small order-approval scenario on an Enact engine,
// persisting instances to the file system.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact"
	"github.com/enactiq/enact/identity"
	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/persistence/provider/filesystem"
	"github.com/enactiq/enact/process"
	"github.com/enactiq/enact/usertask"
)

// newContext returns a cancelable context that is canceled when the process
// receives a SIGTERM or SIGINT.
func newContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
		case <-sig:
			cancel()
		}
	}()

	return ctx, cancel
}

func main() {
	ctx, cancel := newContext()
	defer cancel()

	if err := run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Println(err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context) error {
	dir := flag.String(
		"dir",
		filepath.Join(os.TempDir(), "enact-approvals"),
		"directory that instances are persisted to",
	)
	flag.Parse()

	e := enact.New(
		orderApproval{},
		enact.WithProcessStorage(
			func(
				ctx context.Context,
				definitionID string,
				c persistence.Codec[*process.Instance],
			) (persistence.Store[*process.Instance], error) {
				p := &filesystem.Provider[*process.Instance]{
					Dir:   *dir,
					Codec: c,
				}
				return p.Open(ctx, definitionID)
			},
		),
		enact.WithTaskStorage(
			func(
				ctx context.Context,
				scope string,
				c persistence.Codec[*usertask.Instance],
			) (persistence.Store[*usertask.Instance], error) {
				p := &filesystem.Provider[*usertask.Instance]{
					Dir:   *dir,
					Codec: c,
				}
				return p.Open(ctx, scope)
			},
		),
		enact.WithLogger(
			&logging.StandardLogger{
				Target: log.New(os.Stderr, "", 0),
			},
		),
	)

	engineCtx, stop := context.WithCancel(ctx)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- e.Run(engineCtx)
	}()

	if err := scenario(ctx, e); err != nil {
		return err
	}

	stop()

	if err := <-done; !errors.Is(err, context.Canceled) {
		return err
	}

	return ctx.Err()
}

// scenario starts an order-approval instance and completes its approval task
// as the manager.
func scenario(ctx context.Context, e *enact.Engine) error {
	inst, err := e.StartProcess(
		ctx,
		"order-approval",
		process.MapVariables{
			"order_id": "ORD-1234",
			"amount":   149.95,
			"approver": "manager",
		},
	)
	if err != nil {
		return err
	}

	fmt.Printf("started instance %s (%s)\n", inst.ID(), inst.Status())

	items := inst.WorkItems()
	if len(items) != 1 {
		return fmt.Errorf("expected one pending work item, got %d", len(items))
	}

	task, ok, err := e.Tasks().GetByWorkItem(ctx, items[0].ID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("the approval task was not created")
	}

	fmt.Printf("awaiting approval: %s\n", task.TaskName())

	manager := identity.Identity{Name: "manager"}

	if err := e.Tasks().Claim(ctx, task.ID(), manager); err != nil {
		return err
	}

	if err := e.Tasks().Complete(
		ctx,
		task.ID(),
		map[string]any{"approved": true},
		manager,
	); err != nil {
		return err
	}

	if _, ok, err := e.FindProcess(ctx, "order-approval", inst.ID()); err != nil {
		return err
	} else if ok {
		return errors.New("the instance did not complete")
	}

	fmt.Println("order approved, instance completed")

	return nil
}
