// Package widget stores configured widget instances.
//
// Each instance is a meta record of type widget whose value is the JSON
// settings of one concrete widget type, tagged with the folder that defines
// it. The store never touches areas; placement is the area registry's job.
package widget
