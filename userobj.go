package gm

// UserTypeCallbacks are the per-registered-type hooks a host supplies when
// calling RegisterUserType (spec.md §3 "User": "per-user-type callbacks
// for GC-trace, destructor, operator overloads").
type UserTypeCallbacks struct {
	Name string
	// Trace reports any heap handles reachable from ptr so the GC can
	// visit them. May be nil if the user type holds no gm references.
	Trace func(ptr any, mark func(handle int32))
	// Destroy runs when the object is swept. May be nil.
	Destroy func(ptr any)
	// Operators maps an opcode name (e.g. "+", "-", "==") to an overload;
	// absent an entry, the operator raises a typed exception (spec.md
	// §4.F "Operator dispatch").
	Operators map[string]func(t *Thread, lhs, rhs Variant) (Variant, error)
}

type userType struct {
	kind VType
	cb   UserTypeCallbacks
}

// userObj is an opaque host pointer tagged with its registered user-type
// id (spec.md §3 "User").
type userObj struct {
	objHeader
	ptr any
	cb  *UserTypeCallbacks
}

func (u *userObj) header() *objHeader { return &u.objHeader }

func (u *userObj) trace(mark func(int32)) {
	if u.cb != nil && u.cb.Trace != nil {
		u.cb.Trace(u.ptr, mark)
	}
}

func (u *userObj) byteSize() int { return 48 }

// AllocUser creates a user object of the given registered kind, wired to
// that type's trace/destroy callbacks via ut.
func (h *Heap) AllocUser(ptr any, kind VType, ut *userType) int32 {
	obj := &userObj{ptr: ptr}
	obj.typ = kind
	if ut != nil {
		obj.cb = &ut.cb
	}
	return h.alloc(obj)
}

func (h *Heap) user(handle int32) *userObj {
	u, _ := h.object(handle).(*userObj)
	return u
}

// UserPtr returns the opaque host pointer stored at handle.
func (h *Heap) UserPtr(handle int32) any {
	if u := h.user(handle); u != nil {
		return u.ptr
	}
	return nil
}

// destroyUser is called by the collector right before a user object's
// handle is freed, running the registered destructor callback if any.
func destroyUser(obj heapObject) {
	u, ok := obj.(*userObj)
	if !ok || u.cb == nil || u.cb.Destroy == nil {
		return
	}
	u.cb.Destroy(u.ptr)
}
