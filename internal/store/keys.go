package store

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to
// enable multiple hilda instances to safely coexist on a single Redis server.
//
// Key pattern: hilda:{instance_name}:{entity}:{uuid}
// Channel pattern: hilda:{instance_name}:{event_type}_events

// RecordKey returns the Redis key for an audit record.
// Pattern: hilda:{instance_name}:record:{record_id}
func RecordKey(instanceName, recordID string) string {
	return fmt.Sprintf("hilda:%s:record:%s", instanceName, recordID)
}

// RecordIndexKey returns the Redis key for the time-ordered record index
// ZSET (score = invoked_at_ms).
// Pattern: hilda:{instance_name}:records
func RecordIndexKey(instanceName string) string {
	return fmt.Sprintf("hilda:%s:records", instanceName)
}

// RecordEventsChannel returns the Pub/Sub channel name for record events.
// Pattern: hilda:{instance_name}:record_events
func RecordEventsChannel(instanceName string) string {
	return fmt.Sprintf("hilda:%s:record_events", instanceName)
}
