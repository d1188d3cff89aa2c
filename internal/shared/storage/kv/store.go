// Package kv defines the string key-value contract every resume storage backend satisfies.
package kv

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidKey is returned for empty keys or namespaces.
var ErrInvalidKey = errors.New("invalid key")

// Store is a string-valued key-value store. A missing key is reported with ok=false, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type namespaced struct {
	inner  Store
	prefix string
}

// Namespaced scopes every key of inner under namespace.
func Namespaced(inner Store, namespace string) (Store, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" || strings.Contains(namespace, "/") {
		return nil, ErrInvalidKey
	}
	return &namespaced{inner: inner, prefix: namespace + "/"}, nil
}

func (n *namespaced) key(k string) (string, error) {
	if strings.TrimSpace(k) == "" {
		return "", ErrInvalidKey
	}
	return n.prefix + k, nil
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	k, err := n.key(key)
	if err != nil {
		return "", false, err
	}
	return n.inner.Get(ctx, k)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	k, err := n.key(key)
	if err != nil {
		return err
	}
	return n.inner.Set(ctx, k, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	k, err := n.key(key)
	if err != nil {
		return err
	}
	return n.inner.Remove(ctx, k)
}

func (n *namespaced) Ping(ctx context.Context) error {
	return n.inner.Ping(ctx)
}
