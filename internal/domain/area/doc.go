// Package area keeps the ordered widget lists of system and theme areas.
//
// System areas exist regardless of theme and are stored under their id.
// Theme areas are stored under "<theme folder>-<area id>", so every theme
// keeps its own placements. Each edit is one atomic Mutate on the area's
// record; edits to different areas never contend.
package area
