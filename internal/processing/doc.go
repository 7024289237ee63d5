// Package processing implements the per-question operation executors. Each
// executor turns one question plus one requested operation into an AI call,
// parses the response, and writes the outcome through the store interfaces:
// translations are upserted, polish proposals become pending reviews, and
// fill_missing and category_tags patch only the question fields they are
// allowed to touch.
package processing
