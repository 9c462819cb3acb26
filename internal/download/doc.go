// Package download implements the download stage: yt-dlp fetches the best
// audio of a remote page into the scratch directory, its live `[download]`
// lines drive stage progress, and the accompanying info JSON is published as
// item results for the tagging stage.
package download
