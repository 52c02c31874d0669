package client

import (
	"container/list"
	"sync"
	"time"
)

// ConnectionCache pools Clients by peer address, letting callers reuse a
// connected Client instead of paying handshake cost per call.
type ConnectionCache struct {
	mu         sync.Mutex
	cache      map[string]*list.List
	clientName string
	sec        *ClientSecurityManager
}

// NewConnCache constructs a cache whose pooled clients identify themselves
// as clientName.
func NewConnCache(clientName string, sec *ClientSecurityManager) *ConnectionCache {
	return &ConnectionCache{cache: make(map[string]*list.List), clientName: clientName, sec: sec}
}

// Connect returns a pooled Client for addr if one is idle, otherwise
// dials a new one.
func (cc *ConnectionCache) Connect(addr PeerAddress) (*Client, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	key := addr.String()
	cls, ok := cc.cache[key]
	if !ok {
		cls = list.New()
		cc.cache[key] = cls
	}
	if cls.Len() > 0 {
		front := cls.Front()
		cls.Remove(front)
		return front.Value.(*pooledClient).client, nil
	}

	cl, err := New(cc.clientName, cc.sec, addr)
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// Return releases cl back into the pool for reuse. Callers must not use cl
// again after calling Return.
func (cc *ConnectionCache) Return(addr PeerAddress, cl *Client) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	key := addr.String()
	cls, ok := cc.cache[key]
	if !ok {
		cls = list.New()
		cc.cache[key] = cls
	}
	cls.PushBack(&pooledClient{client: cl, returnedAt: time.Now()})
}

// CleanOld closes and removes every pooled connection idle longer than
// olderThan, and drops empty cache entries.
func (cc *ConnectionCache) CleanOld(olderThan time.Duration) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	now := time.Now()
	for key, cls := range cc.cache {
		if cls == nil || cls.Len() == 0 {
			delete(cc.cache, key)
			continue
		}
		var next *list.Element
		for e := cls.Front(); e != nil; e = next {
			next = e.Next()
			pc := e.Value.(*pooledClient)
			if now.Sub(pc.returnedAt) > olderThan {
				pc.client.Close()
				cls.Remove(e)
			}
		}
	}
}

// CloseAll closes and removes every pooled connection.
func (cc *ConnectionCache) CloseAll() {
	cc.CleanOld(0)
}

type pooledClient struct {
	client     *Client
	returnedAt time.Time
}
