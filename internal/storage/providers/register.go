// Package providers регистрирует встроенные провайдеры хранилища.
package providers

import (
	"fmt"
	"sync"

	"github.com/unentropy/unentropy-sub001/internal/storage"
	"github.com/unentropy/unentropy-sub001/internal/storage/badgerstore"
	"github.com/unentropy/unentropy-sub001/internal/storage/gitnotes"
	"github.com/unentropy/unentropy-sub001/internal/storage/local"
	"github.com/unentropy/unentropy-sub001/internal/storage/redisstore"
	"github.com/unentropy/unentropy-sub001/internal/storage/s3store"
	"github.com/unentropy/unentropy-sub001/internal/storage/sqlstore"
)

var (
	once    sync.Once
	onceErr error
)

// RegisterAll регистрирует все встроенные провайдеры. Повторный вызов безопасен.
func RegisterAll() error {
	once.Do(func() {
		for _, d := range []storage.Descriptor{
			local.Descriptor,
			s3store.Descriptor,
			gitnotes.Descriptor,
			sqlstore.Descriptor,
			badgerstore.Descriptor,
			redisstore.Descriptor,
		} {
			if err := storage.Register(d); err != nil {
				onceErr = fmt.Errorf("регистрация провайдера %s: %w", d.Name, err)
				return
			}
		}
	})
	return onceErr
}
