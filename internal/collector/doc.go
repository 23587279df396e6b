// Package collector turns a stream of output lines into markers.
//
// A collector owns one line matcher per configured problem matcher and a
// sliding window of recent lines. Each submitted line is matched, its file
// name resolved to a resource, and the marker recorded under the matcher's
// owner and that resource. Markers for a resource are delivered to the
// marker.Service when output moves on to another resource and when the run
// finishes.
//
// ProcessLine returns immediately. Lines are processed one at a time in
// submission order by a single worker, so a slow resource resolution for one
// line delays, but never reorders, the lines after it.
//
// StartStopCollector is used for tasks that run to completion: resources
// that had markers before the run and were not reported again are removed
// when Done is called. WatchingCollector is used for background tasks whose
// output is divided into cycles by begin and end patterns.
package collector
