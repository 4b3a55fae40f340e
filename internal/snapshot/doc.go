// Package snapshot holds the persisted todo document and its change-detection
// summary.
//
// # File Format
//
// A snapshot serializes as:
//
//	{
//	  "todos": [
//	    {"taskid": "1", "title": "Groceries", "description": "buy milk",
//	     "due_date": null, "priority": null, "category": "personal",
//	     "status": "not_started"}
//	  ],
//	  "summary": {"1": "buy milk"}
//	}
//
// Absent optional fields are written as null. The order of todos and of
// summary keys is preserved across a load/save cycle.
//
// # Tolerance
//
// Decode never fails on partially damaged content: unreadable todos are
// dropped, an unreadable summary is rebuilt, and the result is repaired so
// that the task ids and the summary ids are the same set. Storage backends
// treat a payload Decode rejects outright as an empty document.
package snapshot
