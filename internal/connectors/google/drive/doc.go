// Package drive implements the ObjectStore port on Google Drive.
//
// A space is a Drive folder; its id is the parent id of every artifact,
// index and alias document written into it. Listings use the Drive
// search syntax, so names and parent ids are escaped before they are
// embedded in a query.
package drive
