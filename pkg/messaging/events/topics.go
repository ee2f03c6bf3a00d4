package events

import "strings"

// TopicMap is the per-source allow-list of external webhook topics.
type TopicMap map[string]map[string]Name

func DefaultTopicMap() TopicMap {
	return TopicMap{
		"shopify": {
			"app/uninstalled":               "webhook.app.uninstalled",
			"app_subscriptions/update":      "webhook.app.subscription_updated",
			"app_purchases_one_time/update": "webhook.app.purchase_updated",
			"products/create":               "webhook.catalog.item_created",
			"products/update":               "webhook.catalog.item_updated",
			"products/delete":               "webhook.catalog.item_deleted",
			"orders/create":                 "webhook.order.created",
			"orders/updated":                "webhook.order.updated",
			"orders/fulfilled":              "webhook.order.fulfilled",
			"orders/cancelled":              "webhook.order.cancelled",
			"inventory_levels/update":       "webhook.inventory.updated",
			"inventory_items/update":        "webhook.inventory.item_updated",
		},
		"stripe": {
			"payment_intent.succeeded":      "webhook.payment.succeeded",
			"payment_intent.failed":         "webhook.payment.failed",
			"customer.subscription.created": "webhook.subscription.created",
			"customer.subscription.updated": "webhook.subscription.updated",
			"customer.subscription.deleted": "webhook.subscription.cancelled",
			"customer.created":              "webhook.customer.created",
			"customer.updated":              "webhook.customer.updated",
		},
	}
}

// Lookup matches source case-insensitively and topic exactly.
func (m TopicMap) Lookup(source, rawTopic string) (Name, bool) {
	topics, ok := m[strings.ToLower(source)]
	if !ok {
		return "", false
	}
	name, ok := topics[rawTopic]
	return name, ok
}

// Merge returns a copy of m with overrides applied per topic.
// An empty name in overrides removes the topic from the allow-list.
func (m TopicMap) Merge(overrides TopicMap) TopicMap {
	out := make(TopicMap, len(m))
	for source, topics := range m {
		cp := make(map[string]Name, len(topics))
		for topic, name := range topics {
			cp[topic] = name
		}
		out[source] = cp
	}
	for source, topics := range overrides {
		source = strings.ToLower(source)
		if out[source] == nil {
			out[source] = make(map[string]Name, len(topics))
		}
		for topic, name := range topics {
			if name == "" {
				delete(out[source], topic)
				continue
			}
			out[source][topic] = name
		}
	}
	return out
}

// Validate checks every mapped name.
func (m TopicMap) Validate() error {
	for _, topics := range m {
		for _, name := range topics {
			if err := name.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Targets returns the distinct internal names the allow-list maps to.
func (m TopicMap) Targets() []Name {
	seen := make(map[Name]struct{})
	var out []Name
	for _, topics := range m {
		for _, name := range topics {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}
