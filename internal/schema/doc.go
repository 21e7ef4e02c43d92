// Package schema turns model declarations into ir.ObjectSchema values and
// keeps them in a Registry.
//
// Models are declared either in CUE:
//
//	model: Person: {
//		primaryKey: "id"
//		ignored: ["scratch"]
//		properties: {
//			id:      {type: "int64"}
//			name:    {type: "string", default: "anon"}
//			scratch: {type: "int"}
//			friend:  {type: "object", target: "Person"}
//		}
//	}
//
// or as Go literals built with Object and Field. Both paths produce the
// same IR and go through the same validation rules (E1xx codes).
package schema
