package redis

import "strings"

const defaultNamespace = "sl"

// Keyspace builds colon separated keys under one namespace so several
// environments can share a Redis database.
type Keyspace struct {
	namespace string
}

func NewKeyspace(namespace string) Keyspace {
	return Keyspace{namespace: strings.Trim(strings.TrimSpace(namespace), ":")}
}

// Key joins parts under the namespace, dropping blank parts.
func (k Keyspace) Key(parts ...string) string {
	ns := k.namespace
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.Key("idempotency", scope, id)
}

// CooldownKey suppresses repeated threshold signals for one record.
func (k Keyspace) CooldownKey(scope, id string) string {
	return k.Key("cooldown", scope, id)
}

func (k Keyspace) CounterKey(parts ...string) string {
	return k.Key(append([]string{"counter"}, parts...)...)
}

func (k Keyspace) LockKey(name string) string {
	return k.Key("lock", name)
}
