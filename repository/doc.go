// Package repository provides a generic repository that derives an entity's
// table and columns from its struct tags and synthesizes parameterized SQL for
// whole-row CRUD, owner-filtered lookups and paged listings.
package repository
