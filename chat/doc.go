// Package chat contains the Twitch IRC surfaces: the collector, which mirrors
// channel chat into daily log files and Postgres, and the bot, which answers
// @mentions with generations from a loaded Markov model.
package chat
