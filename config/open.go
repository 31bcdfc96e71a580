package config

import (
	"os"
	"time"

	"xdao.co/arena/storage"
	"xdao.co/arena/storage/grpccas"
	"xdao.co/arena/storage/ipfs"
	"xdao.co/arena/storage/localfs"
	"xdao.co/arena/storage/memory"
)

// OpenStores opens every configured store. With one store it is returned
// directly; with several, writes go to all of them and reads fall back in
// file order. The returned close function releases remote connections.
func (n Node) OpenStores() (storage.CAS, func() error, error) {
	if err := n.Validate(); err != nil {
		return nil, nil, err
	}

	backends := make([]storage.Backend, 0, len(n.Stores))
	closers := make([]func() error, 0, len(n.Stores))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, s := range n.Stores {
		cas, closeFn, err := s.open()
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		backends = append(backends, storage.Backend{Name: s.name(), CAS: cas})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(backends) == 1 {
		return backends[0].CAS, closeAll, nil
	}
	return storage.MultiCAS{Backends: backends}, closeAll, nil
}

func (s Store) open() (storage.CAS, func() error, error) {
	switch s.Kind {
	case StoreLocalFS:
		cas, err := localfs.New(s.Dir)
		return cas, nil, err
	case StoreGRPC:
		var timeout time.Duration
		if s.Timeout != "" {
			timeout, _ = time.ParseDuration(s.Timeout)
		}
		client, err := grpccas.Dial(s.Target, grpccas.DialOptions{Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case StoreIPFS:
		var env []string
		if s.Repo != "" {
			env = append(os.Environ(), "IPFS_PATH="+s.Repo)
		}
		return ipfs.New(ipfs.Options{Bin: s.Bin, Env: env}), nil, nil
	default:
		return memory.New(), nil, nil
	}
}
