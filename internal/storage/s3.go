// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage archives copies of uploaded question images in an
// S3-compatible bucket. It wraps the AWS SDK v2 with path-style access so
// it works against CEPH, MinIO and Hetzner as well as AWS.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Client stores objects in one bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string
}

// New creates an archive client. Returns (nil, nil) if endpoint,
// credentials or bucket are empty, allowing the app to start without it.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}
	if region == "" {
		region = "us-east-1"
	}

	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Put stores data under key.
func (c *Client) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// FileURL returns the URL of key, through the public URL when configured.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// QuestionKey builds the object key for an archived question image.
// questionID is zero for questions that do not have an ID yet.
func QuestionKey(questionID int, field, filename string, now time.Time) string {
	owner := "new"
	if questionID > 0 {
		owner = fmt.Sprintf("%d", questionID)
	}
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("questions/%s/%s/%s-%s%s", now.UTC().Format("2006/01"), owner, field, uuid.NewString(), ext)
}
