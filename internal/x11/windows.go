package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/res"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
)

// ChildWindowIDs enumerates the immediate children of parent (the
// default root window when parent is zero) and keeps those carrying at
// least one user-facing identity property. Windows with neither a class,
// name, locale name nor size hints are almost always internal helper
// windows nobody would pick as a target, so absence of all four is the
// filter predicate. Order follows server enumeration order.
func (d *Display) ChildWindowIDs(parent xproto.Window) ([]xproto.Window, error) {
	if parent == 0 {
		parent = d.root
	}
	tree, err := xproto.QueryTree(d.info.Conn(), parent).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query child windows of %d: %w", parent, err)
	}
	return filterByIdentity(tree.Children, d.atoms, d.hasProperty), nil
}

func filterByIdentity(children []xproto.Window, atoms identityAtoms, hasProperty func(xproto.Window, xproto.Atom) bool) []xproto.Window {
	ids := make([]xproto.Window, 0, len(children))
	for _, child := range children {
		if hasProperty(child, atoms.class) ||
			hasProperty(child, atoms.name) ||
			hasProperty(child, atoms.localeName) ||
			hasProperty(child, atoms.normalHints) {
			ids = append(ids, child)
		}
	}
	return ids
}

// hasProperty checks property presence without transferring its value.
func (d *Display) hasProperty(win xproto.Window, prop xproto.Atom) bool {
	reply, err := xproto.GetProperty(
		d.info.Conn(), false, win, prop, xproto.GetPropertyTypeAny, 0, 0,
	).Reply()
	if err != nil {
		return false
	}
	return reply.Type != xproto.AtomNone || reply.Format != 0
}

// WindowClass returns the WM_CLASS class name of a window, best effort.
func (d *Display) WindowClass(win xproto.Window) (string, bool) {
	class, err := icccm.WmClassGet(d.info, win)
	if err != nil || class == nil || class.Class == "" {
		return "", false
	}
	return class.Class, true
}

// WindowPID resolves the pid of the client that created the window via
// the X-Resource extension. The lookup is best effort: a failed query or
// a reply without pid-typed entries yields (0, false), never an error.
// Many windows simply have no discoverable owner.
func (d *Display) WindowPID(win xproto.Window) (int, bool) {
	specs := []res.ClientIdSpec{{
		Client: uint32(win),
		Mask:   res.ClientIdMaskLocalClientPID,
	}}
	reply, err := res.QueryClientIds(d.info.Conn(), uint32(len(specs)), specs).Reply()
	if err != nil {
		return 0, false
	}
	return pidFromClientIds(reply.Ids)
}

// pidFromClientIds picks the last pid-typed value of a client id reply,
// matching the server's convention of listing the most specific client
// last.
func pidFromClientIds(ids []res.ClientIdValue) (int, bool) {
	pid := 0
	found := false
	for _, id := range ids {
		if id.Spec.Mask&res.ClientIdMaskLocalClientPID == 0 {
			continue
		}
		if len(id.Value) == 0 {
			continue
		}
		pid = int(id.Value[0])
		found = true
	}
	return pid, found
}
