package flow

import (
	"sort"
	"sync"
	"time"

	"github.com/mohitkumar/eventflow/model"
	c "github.com/patrickmn/go-cache"
)

// Registry holds flow definitions and the running instances.
type Registry struct {
	mu        sync.RWMutex
	flows     map[string]*model.Flow
	instances *c.Cache
}

func NewRegistry() *Registry {
	return &Registry{
		flows:     make(map[string]*model.Flow),
		instances: c.New(c.NoExpiration, time.Minute),
	}
}

func (r *Registry) AddFlow(f *model.Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[f.Id] = f
}

func (r *Registry) GetFlow(id string) (*model.Flow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[id]
	return f, ok
}

func (r *Registry) FlowIds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.flows))
	for id := range r.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddInstance keeps inst for twice its flow TTL; a finished instance is removed
// explicitly with CloseInstance well before that.
func (r *Registry) AddInstance(inst *Instance) {
	r.instances.Set(inst.Id, inst, 2*inst.Flow().TTL)
}

func (r *Registry) GetInstance(id string) (*Instance, bool) {
	v, found := r.instances.Get(id)
	if !found {
		return nil, false
	}
	return v.(*Instance), true
}

func (r *Registry) CloseInstance(id string) {
	r.instances.Delete(id)
}

func (r *Registry) InstanceCount() int {
	return r.instances.ItemCount()
}
