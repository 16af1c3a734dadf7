package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Document is a decoded snapshot together with its id.
type Document[T any] struct {
	ID   string
	Data T
}

// Decoder hydrates the typed entity from a snapshot.
type Decoder[T any] func(snap *firestore.DocumentSnapshot) (T, error)

// QueryBuilder customises a collection query before it runs.
type QueryBuilder func(query firestore.Query) firestore.Query

// DecodeError reports a document whose fields do not fit T. Readers skip such documents.
type DecodeError struct {
	DocumentID string
	Err        error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("firestore: decode document %s: %v", e.DocumentID, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }

// CollectionReader lists typed documents from one collection. The service never writes rules or
// menu items, so only reads are exposed.
type CollectionReader[T any] struct {
	provider   *Provider
	collection string
	decode     Decoder[T]
}

// NewCollectionReader binds a reader to collection. A nil decoder uses DataTo.
func NewCollectionReader[T any](provider *Provider, collection string, decode Decoder[T]) *CollectionReader[T] {
	if decode == nil {
		decode = StructDecoder[T]()
	}
	return &CollectionReader[T]{
		provider:   provider,
		collection: strings.TrimSpace(collection),
		decode:     decode,
	}
}

// List runs the query and decodes every document. Documents that fail to decode are returned as
// DecodeErrors next to the decoded ones; backend failures abort the listing.
func (r *CollectionReader[T]) List(ctx context.Context, build QueryBuilder) ([]Document[T], []error, error) {
	coll, err := r.collectionRef(ctx)
	if err != nil {
		return nil, nil, err
	}
	query := coll.Query
	if build != nil {
		query = build(query)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var (
		docs    []Document[T]
		skipped []error
	)
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, nil, WrapError(r.collection+".list", err)
		}
		entity, err := r.decode(snapshot)
		if err != nil {
			skipped = append(skipped, &DecodeError{DocumentID: snapshot.Ref.ID, Err: err})
			continue
		}
		docs = append(docs, Document[T]{ID: snapshot.Ref.ID, Data: entity})
	}
	return docs, skipped, nil
}

// Collection returns the collection name the reader is bound to.
func (r *CollectionReader[T]) Collection() string { return r.collection }

func (r *CollectionReader[T]) collectionRef(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("firestore: provider is nil")
	}
	if r.collection == "" {
		return nil, errors.New("firestore: collection name is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(r.collection), nil
}

// StructDecoder populates the target struct using Firestore's native decoding.
func StructDecoder[T any]() Decoder[T] {
	return func(snap *firestore.DocumentSnapshot) (T, error) {
		var target T
		err := snap.DataTo(&target)
		return target, err
	}
}
