// Package ytfetch downloads a video from its legacy watch page.
//
// A run fetches the watch page, reads the embedded format map, picks a
// format, and streams the media to disk. When the chosen format carries a
// scrambled signature, the player script is fetched and its decode function
// is read into a small program of reverse, splice and swap steps that
// restores the signature.
//
// Features:
//   - Two transport backends: a raw socket client and net/http
//   - Redirect following with a hop cap and optional rate limiting
//   - Format selection by itag or by MP4/FLV quality preference
//   - Cipher programs cached in memory by player script
//   - Observable pipeline states and progress reporting
//
// Basic usage:
//
//	res, err := ytfetch.New().WithFormat("22").Download(ctx, "https://www.youtube.com/watch?v=...")
//
// A Downloader runs one video at a time. Use one per concurrent download.
package ytfetch
