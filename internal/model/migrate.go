package model

// All lists the tables owned by the registry, in migration order.
func All() []any {
	return []any{&User{}, &Bot{}, &Document{}, &Passage{}, &Message{}}
}
