package resource

import (
	"errors"
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func mustInsert(t *testing.T, table *Table, typeID uint32, v any) Handle {
	t.Helper()
	h, err := table.Insert(typeID, v)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}
	return h
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()
	h := mustInsert(t, table, 1, "test")

	val, ok := table.Get(h)
	if !ok || val != "test" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	if _, ok := table.GetTyped(h, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok := table.GetTyped(h, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok || val != "test" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("second Remove should fail")
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := mustInsert(t, table, 1, "test")
	if len(obs.events) != 1 || obs.events[0].Type != EventCreated || obs.events[0].Handle != h {
		t.Fatalf("events after Insert: %+v", obs.events)
	}

	table.Remove(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventDropped || obs.events[1].TypeID != 1 {
		t.Fatalf("events after Remove: %+v", obs.events)
	}

	table.Remove(h)
	if len(obs.events) != 2 {
		t.Fatal("failed Remove should not notify")
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	live := 0
	table.Subscribe(ObserverFunc(func(e Event) {
		switch e.Type {
		case EventCreated:
			live++
		case EventDropped:
			live--
		}
	}))

	mustInsert(t, table, 1, "a")
	h := mustInsert(t, table, 1, "b")
	table.Remove(h)
	if live != 1 {
		t.Fatalf("live = %d, want 1", live)
	}
	table.Clear()
	if live != 0 {
		t.Fatalf("live = %d after Clear", live)
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}
	mustInsert(t, table, 1, d)
	mustInsert(t, table, 1, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.count != 1 {
		t.Errorf("Drop called %d times", d.count)
	}
	if err := table.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := table.Insert(1, "c"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Insert after Close: %v", err)
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := mustInsert(t, table, 1, d)
	table.Remove(h)
	table.Remove(h)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		typ  EventType
		want string
	}{
		{EventCreated, "created"},
		{EventDropped, "dropped"},
		{EventType(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d: got %q, want %q", tt.typ, got, tt.want)
		}
	}
}
