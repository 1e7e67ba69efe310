package storage

import (
	"context"

	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type etcdBackend struct {
	client *clientv3.Client
}

// NewEtcd 基于 Etcd 的后端，PutIfAbsent 使用 CreateRevision == 0 的事务
func NewEtcd(conn connector.EtcdConnector) (Backend, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "etcd")
	}
	return &etcdBackend{client: conn.GetClient()}, nil
}

func (e *etcdBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	resp, err := e.client.Get(ctx, key)
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "storage: etcd get %q", key)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

func (e *etcdBackend) Put(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := e.client.Put(ctx, key, string(value)); err != nil {
		return xerrors.Wrapf(err, "storage: etcd put %q", key)
	}
	return nil
}

func (e *etcdBackend) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	resp, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(value))).
		Commit()
	if err != nil {
		return false, xerrors.Wrapf(err, "storage: etcd txn %q", key)
	}
	return resp.Succeeded, nil
}

func (e *etcdBackend) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := e.client.Delete(ctx, key); err != nil {
		return xerrors.Wrapf(err, "storage: etcd delete %q", key)
	}
	return nil
}

func (e *etcdBackend) Close() error {
	return nil
}
