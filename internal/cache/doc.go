// Package cache provides a sharded LRU cache for long-lived, keyed launch
// resources such as per-capacity arena pools.
package cache
