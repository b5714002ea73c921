package client

import "errors"

var (
	ErrNotLoggedIn    = errors.New("не выполнен вход, выполните gophistory login")
	ErrSyncInProgress = errors.New("синхронизация уже выполняется")
	ErrSyncDisabled   = errors.New("синхронизация отключена (sync_enabled=false)")
	ErrNoKey          = errors.New("ключ шифрования не найден, выполните gophistory key init")
	ErrDupKeep        = errors.New("--dupkeep 0 удалил бы все копии команд, для этого используйте history delete")
)
