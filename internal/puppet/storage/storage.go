// Package storage 提供 puppet 缓存的可插拔存储。
// 内存实现用于默认场景,redis 实现用于多实例共享缓存。
package storage

import "context"

// Storage 键值存储接口
// key 由调用方加命名空间前缀,实现不感知前缀语义
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys 返回指定前缀下的全部 key
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
