// Package ytdlp wraps the yt-dlp command-line tool for metadata extraction
// and subtitle downloads. Media is never downloaded.
package ytdlp
