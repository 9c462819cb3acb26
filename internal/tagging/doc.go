// Package tagging implements the tag stage.
//
// Remote items get their metadata from the yt-dlp info published by the
// download stage: artist and title are split out of the page title when the
// platform did not supply music metadata, decoration such as "(Official
// Video)" is dropped, and the thumbnail becomes the front cover. Local items
// keep their existing tags; only a missing title or artist is filled in from
// the file name.
package tagging
