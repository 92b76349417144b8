package database

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// NewEmulatorClient returns a client for projectID on the emulator named by
// FIRESTORE_EMULATOR_HOST, or ErrNoEmulator.
func NewEmulatorClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if os.Getenv(EmulatorHostEnv) == "" {
		return nil, ErrNoEmulator
	}
	client, err := firestore.NewClient(ctx, projectID, option.WithoutAuthentication())
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return client, nil
}

// DeleteCollections removes every document of the named top-level collections,
// including their subcollections. It returns how many documents were deleted.
func DeleteCollections(ctx context.Context, client *firestore.Client, names ...string) (int, error) {
	bw := client.BulkWriter(ctx)
	deleted, err := 0, error(nil)
	for _, name := range names {
		var n int
		n, err = deleteAll(ctx, bw, client.Collection(name))
		deleted += n
		if err != nil {
			break
		}
	}
	bw.End()
	return deleted, err
}

func deleteAll(ctx context.Context, bw *firestore.BulkWriter, col *firestore.CollectionRef) (int, error) {
	refs := col.DocumentRefs(ctx)
	deleted := 0
	for {
		ref, err := refs.Next()
		if err == iterator.Done {
			return deleted, nil
		}
		if err != nil {
			return deleted, fmt.Errorf("list %s: %w", col.Path, err)
		}
		subs := ref.Collections(ctx)
		for {
			sub, err := subs.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return deleted, fmt.Errorf("list subcollections of %s: %w", ref.Path, err)
			}
			n, err := deleteAll(ctx, bw, sub)
			deleted += n
			if err != nil {
				return deleted, err
			}
		}
		if _, err := bw.Delete(ref); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", ref.Path, err)
		}
		deleted++
	}
}
